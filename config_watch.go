package main

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

func Watch(path string, configs chan<- *Config, errors chan<- error, done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("can't create watcher: %w", err)
	}
	report := func(err error) {
		select {
		case errors <- err:
		case <-done:
		}
	}
	go func() {
	loop:
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					break loop
				}
				// editors on linux write in place or rename over the file
				if event.Op&(fsnotify.Write|fsnotify.Rename) > 0 {
					c, err := loadConfig(path)
					if err != nil {
						report(err)
						continue loop
					}
					logger.Debug("config changed", "path", path, "op", event.Op.String())
					select {
					case configs <- c:
					case <-done:
						break loop
					}
				}
				if event.Op&fsnotify.Rename > 0 {
					// the watch is gone with the old inode
					if err := watcher.Add(path); err != nil {
						report(fmt.Errorf("can't re-watch config: %w", err))
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					break loop
				}
				report(err)
			case <-done:
				break loop
			}
		}
		// ignore close error
		watcher.Close()
	}()
	err = watcher.Add(path)
	if err != nil {
		// stops the goroutine above
		watcher.Close()
		return fmt.Errorf("can't watch %s: %w", path, err)
	}
	return nil
}
