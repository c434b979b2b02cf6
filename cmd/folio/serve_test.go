package main

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
		debug         bool
	}{
		{level: "info", format: "text"},
		{level: "DEBUG", format: "json", debug: true},
		{level: "", format: ""},
		{level: "verbose", format: "text", wantErr: true},
		{level: "info", format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			l, err := newLogger(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newLogger(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := l.Enabled(context.Background(), slog.LevelDebug); got != tt.debug {
				t.Errorf("debug enabled = %v, want %v", got, tt.debug)
			}
		})
	}
}
