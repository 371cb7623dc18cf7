package service

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	ContainerInProgress = "IN_PROGRESS"
	ContainerFinished   = "FINISHED"
	ContainerError      = "ERROR"
)

var (
	ErrProcessingFailed   = errors.New("processing failed")
	ErrProcessingTimedOut = errors.New("processing timed out")
)

// readinessPolicy bounds how long a media container is polled before publish.
type readinessPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	IsReady     func(status string) bool
	IsError     func(status string) bool
}

func isFinished(status string) bool { return status == ContainerFinished }

func isErrored(status string) bool { return status == ContainerError }

var (
	reelReadiness = readinessPolicy{
		Interval:    10 * time.Second,
		MaxAttempts: 30,
		IsReady:     isFinished,
		IsError:     isErrored,
	}
	storyVideoReadiness = readinessPolicy{
		Interval:    5 * time.Second,
		MaxAttempts: 12,
		IsReady:     isFinished,
		IsError:     isErrored,
	}
)

// storySettleDelay is waited before publishing an image story instead of polling.
const storySettleDelay = 2 * time.Second

// awaitContainer polls the container status until it is ready, errored, or
// MaxAttempts polls have been made, sleeping Interval after every poll that
// was neither.
func (s *instagramService) awaitContainer(ctx context.Context, containerID, accessToken string, p readinessPolicy) error {
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		status, err := s.containerStatus(ctx, containerID, accessToken)
		if err != nil {
			return err
		}

		switch {
		case p.IsError(status):
			slog.Info("container processing failed", "container_id", containerID, "attempt", attempt)
			return ErrProcessingFailed
		case p.IsReady(status):
			return nil
		}

		if err := s.sleep(ctx, p.Interval); err != nil {
			return err
		}
	}

	slog.Info("container not ready in time", "container_id", containerID, "attempts", p.MaxAttempts)
	return ErrProcessingTimedOut
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
