package svc

import "errors"

// ErrStorageInitFailed 错误：存储初始化失败
var ErrStorageInitFailed = errors.New("storage initialization failed")

// ErrCatalogUnavailable 错误：产品目录需要启用 sqlite
var ErrCatalogUnavailable = errors.New("product catalogue requires [sqlite] enabled")
