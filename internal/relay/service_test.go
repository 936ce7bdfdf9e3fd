package relay

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServiceCancelsContextOnSignal(t *testing.T) {
	got := make(chan os.Signal, 1)
	svc, ctx := NewService(context.Background(), false, func(sig os.Signal) {
		got <- sig
	}, syscall.SIGUSR1)
	defer svc.Close()

	require := assert.New(t)
	require.NoError(syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled on signal")
	}

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}
}
