package tui

import (
	"context"
	"fmt"
	"io"
)

// LineSink 以纯文本方式输出，用于非终端环境或 --no-tui
type LineSink struct {
	w      io.Writer
	cols   int
	frames chan Frame
}

// NewLineSink 创建纯文本输出，cols 为渲染行宽
func NewLineSink(w io.Writer, cols int) *LineSink {
	if cols <= 0 {
		cols = 80
	}
	return &LineSink{
		w:      w,
		cols:   cols,
		frames: make(chan Frame, 1),
	}
}

// Columns 返回行宽
func (s *LineSink) Columns() int {
	return s.cols
}

// Present 非阻塞地提交一帧
func (s *LineSink) Present(f Frame) bool {
	select {
	case s.frames <- f:
		return true
	default:
		return false
	}
}

// Run 写出提交的帧，直到 ctx 结束
func (s *LineSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-s.frames:
			if err := s.write(f); err != nil {
				return err
			}
		}
	}
}

func (s *LineSink) write(f Frame) error {
	if _, err := fmt.Fprintf(s.w, "-- %s  hosts=%d flows=%d\n",
		f.At.Format("15:04:05"), len(f.Rows), f.Flows); err != nil {
		return err
	}
	for _, r := range f.Rows {
		if _, err := fmt.Fprintln(s.w, r.Line); err != nil {
			return err
		}
	}
	return nil
}
