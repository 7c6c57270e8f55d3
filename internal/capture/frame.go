// Package capture turns uploaded images and camera input into OpenCV frames
// ready for hand detection.
package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

var (
	// ErrEmptyImage is returned when no image bytes were supplied.
	ErrEmptyImage = errors.New("empty image")
	// ErrUndecodable is returned when the bytes are not an image OpenCV can read.
	ErrUndecodable = errors.New("could not decode image")
)

// dataURLMarker separates a data URL header from its payload.
const dataURLMarker = "base64,"

// Decode reads an encoded image (JPEG, PNG, ...) into a BGR Mat.
// The caller is responsible for closing the returned Mat.
func Decode(data []byte) (*gocv.Mat, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrUndecodable
	}

	return &mat, nil
}

// DecodeBase64 strips an optional data URL header ("data:image/jpeg;base64,")
// and returns the raw image bytes.
func DecodeBase64(frame string) ([]byte, error) {
	if i := strings.Index(frame, dataURLMarker); i >= 0 {
		frame = frame[i+len(dataURLMarker):]
	}
	frame = strings.TrimSpace(frame)
	if frame == "" {
		return nil, ErrEmptyImage
	}

	data, err := base64.StdEncoding.DecodeString(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return data, nil
}

// Mirror flips a frame horizontally in place so the image matches what the
// signer sees in a selfie view.
func Mirror(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}
	gocv.Flip(*frame, frame, 1)
}

// EncodeJPEG encodes a frame as JPEG.
func EncodeJPEG(frame *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
