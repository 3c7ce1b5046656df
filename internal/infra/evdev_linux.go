//go:build linux

package infra

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

type evdevReaders struct {
	files []*os.File
	wg    sync.WaitGroup
}

func (r *evdevReaders) stop() error {
	var firstErr error
	for _, f := range r.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.wg.Wait()
	return firstErr
}

// Start opens every readable input device and forwards presses to onEvent.
func (s *EvdevHookSource) Start(cfg *domain.Config, onEvent func(domain.ActivityEvent)) error {
	if s.stopper != nil {
		return nil
	}

	paths, err := filepath.Glob(s.pattern)
	if err != nil {
		return fmt.Errorf("invalid input device pattern: %w", err)
	}

	readers := &evdevReaders{}
	var lastErr error
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			lastErr = err
			continue
		}
		readers.files = append(readers.files, f)
	}
	if len(readers.files) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("no devices match %s", s.pattern)
		}
		return fmt.Errorf("%w: input devices: %v", domain.ErrUnavailable, lastErr)
	}

	for _, f := range readers.files {
		readers.wg.Add(1)
		go func(f *os.File) {
			defer readers.wg.Done()
			s.read(f, onEvent)
		}(f)
	}

	s.logger.Info("input monitoring started", zap.Int("devices", len(readers.files)))
	s.stopper = readers
	return nil
}

func (s *EvdevHookSource) read(f *os.File, onEvent func(domain.ActivityEvent)) {
	buf := make([]byte, inputEventSize)
	device := filepath.Base(f.Name())
	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			// Closed by Stop, or the device was unplugged.
			s.logger.Debug("input device reader exiting", zap.String("device", device), zap.Error(err))
			return
		}
		if ev, ok := decodeInputEvent(buf, device, time.Now()); ok {
			onEvent(ev)
		}
	}
}

// Stop closes all devices and waits for the readers to exit.
func (s *EvdevHookSource) Stop() error {
	if s.stopper == nil {
		return nil
	}
	err := s.stopper.stop()
	s.stopper = nil
	return err
}
