package utils

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// DumpStacksOnSignal prints the stacks of all goroutines whenever
// the process receives SIGUSR1.
func DumpStacksOnSignal() {
	ch := make(chan os.Signal, 10)
	signal.Notify(ch, syscall.SIGUSR1)

	go func() {
		for range ch {
			buf := make([]byte, 1<<16)
			len := runtime.Stack(buf, true)
			fmt.Printf("%s\n", buf[:len])
		}
	}()
}

// TerminationContext returns a context that is cancelled on SIGINT or SIGTERM.
func TerminationContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
