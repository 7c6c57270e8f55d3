package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/signbridge/internal/capture"
)

// CameraSessionID is the session used by the local camera loop.
const CameraSessionID = "camera"

// ResultHandler receives every result produced by the camera loop.
type ResultHandler func(*Result)

// RunCamera reads frames from cam until ctx is cancelled. Frames are only
// recognized while the motion gate is active: the loop polls at the idle rate,
// switches to the active rate on motion and drops back after the idle timeout.
// Going idle clears the camera session.
func (a *App) RunCamera(ctx context.Context, cam capture.Camera, motion *capture.MotionDetector, onResult ResultHandler) error {
	if err := cam.Open(); err != nil {
		return err
	}
	defer cam.Close()
	defer motion.Close()

	gate := capture.NewMotionGate()
	cam.SetFPS(gate.FPS())

	ticker := time.NewTicker(time.Second / time.Duration(gate.FPS()))
	defer ticker.Stop()

	log := logrus.WithField("session_id", CameraSessionID)
	log.Info("app: camera loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info("app: camera loop stopped")
			return nil
		case now := <-ticker.C:
			frame, err := cam.ReadFrame()
			if err != nil {
				log.WithError(err).Warn("app: failed to read frame")
				continue
			}

			moved, _ := motion.Detect(frame)
			active, fps := gate.Observe(moved, now)
			if fps > 0 {
				cam.SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
				log.WithField("fps", fps).Debug("app: camera rate changed")
				if !active {
					if err := a.stabilizer.Clear(ctx, CameraSessionID); err != nil {
						log.WithError(err).Warn("app: failed to clear camera session")
					}
				}
			}

			if !active {
				frame.Close()
				continue
			}

			result, err := a.ProcessFrame(ctx, CameraSessionID, frame)
			if err != nil {
				log.WithError(err).Warn("app: failed to process frame")
				continue
			}
			if onResult != nil {
				onResult(result)
			}
		}
	}
}
