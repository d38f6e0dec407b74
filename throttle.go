// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package survival

import (
	"sync"

	"go.uber.org/multierr"
)

// throttle limits the number of concurrent workers and collects every
// error they report.
type throttle struct {
	Max       int
	wg        sync.WaitGroup
	ch        chan bool
	mtx       sync.Mutex
	err       error
	setupOnce sync.Once
}

func (t *throttle) Acquire() {
	t.setupOnce.Do(func() { t.ch = make(chan bool, t.Max) })
	t.wg.Add(1)
	t.ch <- true
}

func (t *throttle) Release() {
	t.wg.Done()
	<-t.ch
}

func (t *throttle) Report(err error) {
	if err != nil {
		t.mtx.Lock()
		t.err = multierr.Append(t.err, err)
		t.mtx.Unlock()
	}
}

func (t *throttle) Err() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.err
}

func (t *throttle) Wait() error {
	t.wg.Wait()
	return t.Err()
}
