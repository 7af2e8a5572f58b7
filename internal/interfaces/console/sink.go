package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ratiobot/internal/application/port"
)

// Sink dry-run 通知端：消息打印到终端，不向外发送
type Sink struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

var _ port.Notifier = (*Sink)(nil)

func NewSink() *Sink { return NewSinkTo(os.Stdout) }

func NewSinkTo(w io.Writer) *Sink {
	return &Sink{out: w, now: time.Now}
}

func (s *Sink) SendText(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.out, "%s %s\n", s.now().Format("2006-01-02 15:04:05"), text)
	return err
}

// SendImage 只记录图片路径
func (s *Sink) SendImage(ctx context.Context, path string) error {
	log.Info().Str("image", path).Msg("dry-run image")
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.out, "%s [image] %s\n", s.now().Format("2006-01-02 15:04:05"), path)
	return err
}
