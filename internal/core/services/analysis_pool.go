// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrPoolClosed is returned by Analyze after Close.
var ErrPoolClosed = errors.New("analysis pool is closed")

// FaceAnalyzer is the opaque face analysis capability.
type FaceAnalyzer interface {
	Analyze(ctx context.Context, imagePath string) (any, error)
}

type analysisOutcome struct {
	raw any
	err error
}

type analysisJob struct {
	ctx       context.Context
	imagePath string
	done      chan analysisOutcome
}

// AnalysisPool runs face analysis on a fixed number of workers so that the
// model never runs on more goroutines than configured, however many requests
// are in flight.
type AnalysisPool struct {
	analyzer FaceAnalyzer
	jobs     chan *analysisJob
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAnalysisPool starts workers goroutines; values below 1 start one.
func NewAnalysisPool(analyzer FaceAnalyzer, workers int) *AnalysisPool {
	if workers < 1 {
		workers = 1
	}
	p := &AnalysisPool{analyzer: analyzer, jobs: make(chan *analysisJob)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Analyze queues one analysis and waits for it. ctx only bounds the wait for
// a free worker; once started, the analysis runs to completion.
func (p *AnalysisPool) Analyze(ctx context.Context, imagePath string) (any, error) {
	job := &analysisJob{ctx: ctx, imagePath: imagePath, done: make(chan analysisOutcome, 1)}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return nil, ctx.Err()
	}

	out := <-job.done
	return out.raw, out.err
}

// Close stops accepting work and waits for running analyses to finish.
func (p *AnalysisPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *AnalysisPool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		job.done <- p.run(id, job)
	}
}

func (p *AnalysisPool) run(id int, job *analysisJob) (out analysisOutcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("face analyzer panicked", "worker", id, "path", job.imagePath, "panic", r)
			out = analysisOutcome{err: fmt.Errorf("face analyzer panicked: %v", r)}
		}
	}()
	raw, err := p.analyzer.Analyze(context.WithoutCancel(job.ctx), job.imagePath)
	return analysisOutcome{raw: raw, err: err}
}
