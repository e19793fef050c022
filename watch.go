package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// UntilModifyContext returns a context that is canceled when one of the
// target files is written, created, removed or renamed. Parent directories
// are watched so editors that save by rename are still seen.
//
// If error is not nil, both the context and the cancel function are nil.
func UntilModifyContext(ctx context.Context, targetFilePath ...string) (context.Context, func(), error) {
	cctx, cancel := context.WithCancelCause(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel(err)
		return nil, nil, err
	}

	targets := make(map[string]bool, len(targetFilePath))
	dirs := make(map[string]bool)
	for _, f := range targetFilePath {
		abs, err := filepath.Abs(f)
		if err != nil {
			w.Close()
			cancel(err)
			return nil, nil, err
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	go func() {
		defer w.Close()

		for {
			select {
			case <-cctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				name, err := filepath.Abs(event.Name)
				if err != nil || !targets[name] || event.Op == fsnotify.Chmod {
					continue
				}
				cancel(fmt.Errorf("%s is updated (%s)", event.Name, event.Op.String()))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cancel(err)
			}
		}
	}()

	for d := range dirs {
		if err = w.Add(d); err != nil {
			cancel(err)
			return nil, nil, err
		}
	}
	return cctx, func() { cancel(nil) }, nil
}

type modelChangedMsg struct {
	cause error
}

type watchErrMsg struct {
	err error
}

// watchModel waits for the model file to change and reports it to the
// program. It returns nil when ctx ends first.
func watchModel(ctx context.Context, path string) tea.Cmd {
	return func() tea.Msg {
		wctx, cancel, err := UntilModifyContext(ctx, path)
		if err != nil {
			return watchErrMsg{err: err}
		}
		defer cancel()
		<-wctx.Done()
		if ctx.Err() != nil {
			return nil
		}
		return modelChangedMsg{cause: context.Cause(wctx)}
	}
}
