package capture

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecode_RoundTrip(t *testing.T) {
	src := SolidFrame(64, 48, 0, 128, 255)
	defer src.Close()

	data, err := EncodeJPEG(src)
	if err != nil {
		t.Fatalf("EncodeJPEG() error = %v", err)
	}

	mat, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	defer mat.Close()

	if mat.Cols() != 64 || mat.Rows() != 48 {
		t.Errorf("decoded size = %dx%d, want 64x48", mat.Cols(), mat.Rows())
	}
	if mat.Channels() != 3 {
		t.Errorf("channels = %d, want 3", mat.Channels())
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrEmptyImage},
		{"not an image", []byte("definitely not a jpeg"), ErrUndecodable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mat, err := Decode(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
			if mat != nil {
				mat.Close()
				t.Error("expected nil mat on error")
			}
		})
	}
}

func TestDecodeBase64(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff, 0xe0}
	encoded := base64.StdEncoding.EncodeToString(payload)

	tests := []struct {
		name    string
		frame   string
		wantErr error
	}{
		{"plain", encoded, nil},
		{"data url", "data:image/jpeg;base64," + encoded, nil},
		{"surrounding whitespace", "  " + encoded + "\n", nil},
		{"empty", "", ErrEmptyImage},
		{"header only", "data:image/png;base64,", ErrEmptyImage},
		{"garbage", "data:image/png;base64,@@@not-base64@@@", ErrUndecodable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64(tt.frame)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("DecodeBase64() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeBase64() error = %v", err)
			}
			if string(got) != string(payload) {
				t.Errorf("DecodeBase64() = %v, want %v", got, payload)
			}
		})
	}
}

func TestMirror(t *testing.T) {
	frame := SolidFrame(4, 2, 0, 0, 0)
	defer frame.Close()

	// Mark the left column, expect it on the right after mirroring.
	frame.SetUCharAt3(0, 0, 0, 255)
	Mirror(frame)

	if got := frame.GetUCharAt3(0, 3, 0); got != 255 {
		t.Errorf("right column = %d, want 255", got)
	}
	if got := frame.GetUCharAt3(0, 0, 0); got != 0 {
		t.Errorf("left column = %d, want 0", got)
	}

	// nil is a no-op
	Mirror(nil)
}
