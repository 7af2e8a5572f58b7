package port

import "context"

// Notifier 运营通知通道（Telegram 或 dry-run 控制台）
type Notifier interface {
	SendText(ctx context.Context, text string) error
	SendImage(ctx context.Context, path string) error
}
