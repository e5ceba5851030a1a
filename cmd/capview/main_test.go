package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/capview/internal/core"
	"github.com/JonMunkholm/capview/internal/history"
	"github.com/JonMunkholm/capview/internal/web"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		run  history.Run
		want string
	}{
		{
			name: "config failure",
			run:  history.Run{ID: uuid.New(), ConfigCode: "CFG002"},
			want: "config CFG002",
		},
		{
			name: "partial",
			run: history.Run{Entries: []history.Entry{
				{Index: 1, State: "rendered"},
				{Index: 2, State: "failed", ErrorCode: "FET003"},
				{Index: 3, State: "rendered"},
			}},
			want: "2/3 rendered 2:FET003",
		},
		{
			name: "all rendered",
			run: history.Run{Entries: []history.Entry{
				{Index: 1, State: "rendered"},
				{Index: 2, State: "rendered"},
				{Index: 3, State: "rendered"},
			}},
			want: "3/3 rendered",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := summarize(tt.run); got != tt.want {
				t.Errorf("summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}

type gatedResolver struct {
	release chan struct{}
}

func (r gatedResolver) Resolve(string) (*core.Configuration, error) {
	<-r.release
	return nil, errors.New("no configuration")
}

func TestRunInBackground(t *testing.T) {
	release := make(chan struct{})
	board := web.NewBoard()
	pipeline := core.NewPipeline(gatedResolver{release: release}, nil, board)

	done := runInBackground(context.Background(), pipeline, board, "capview.yaml")

	select {
	case <-done:
		t.Fatal("runInBackground() done before the run finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runInBackground() never finished")
	}

	if board.Report() == nil {
		t.Errorf("Report() = nil, want the finished run")
	}
}
