package s3

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCheckImagePolicy(t *testing.T) {
	valid := Image{
		OwnerID:     "user-1",
		Filename:    "bike.JPG",
		ContentType: "image/jpeg",
		Size:        1024,
		Content:     strings.NewReader("jpeg bytes"),
	}

	tests := []struct {
		name    string
		mutate  func(*Image)
		wantErr error
	}{
		{name: "valid image passes", mutate: func(*Image) {}},
		{name: "pdf is not an image", mutate: func(img *Image) { img.ContentType = "application/pdf" }, wantErr: ErrNotImage},
		{name: "empty content type is rejected", mutate: func(img *Image) { img.ContentType = "" }, wantErr: ErrNotImage},
		{name: "oversized upload is rejected", mutate: func(img *Image) { img.Size = MaxImageBytes + 1 }, wantErr: ErrImageTooLarge},
		{name: "size at the cap passes", mutate: func(img *Image) { img.Size = MaxImageBytes }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := valid
			tt.mutate(&img)
			err := checkImage(img)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("checkImage() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("checkImage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("missing owner is rejected", func(t *testing.T) {
		img := valid
		img.OwnerID = "  "
		if err := checkImage(img); err == nil {
			t.Fatal("checkImage() accepted an ownerless upload")
		}
	})
}

func TestObjectKeyConvention(t *testing.T) {
	store := &Store{newID: func() string { return "fixed-id" }}

	if got := store.objectKey("user-1", "photo.JPG"); got != "user-1/fixed-id.jpg" {
		t.Fatalf("objectKey() = %q, want owner-scoped key with lowered extension", got)
	}
	if got := store.objectKey("user-1", "no-extension"); got != "user-1/fixed-id" {
		t.Fatalf("objectKey() = %q, want bare key without extension", got)
	}
	// Client filenames never leak into the key.
	if got := store.objectKey("user-1", "../../etc/passwd.png"); got != "user-1/fixed-id.png" {
		t.Fatalf("objectKey() = %q, filename must not shape the path", got)
	}
}

func TestObjectURL(t *testing.T) {
	store := &Store{bucket: "photos", publicBaseURL: "https://cdn.example.com/"}
	if got := store.objectURL("user-1/fixed-id.jpg"); got != "https://cdn.example.com/photos/user-1/fixed-id.jpg" {
		t.Fatalf("objectURL() = %q", got)
	}
}

func TestHostOf(t *testing.T) {
	if got := hostOf("http://localhost:9000"); got != "localhost:9000" {
		t.Fatalf("hostOf() = %q, want bare host", got)
	}
	if got := hostOf("minio:9000"); got != "minio:9000" {
		t.Fatalf("hostOf() = %q, want passthrough", got)
	}
}

func TestDisabledStore(t *testing.T) {
	_, err := Disabled{}.StoreImage(context.Background(), Image{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("StoreImage() error = %v, want %v", err, ErrUnavailable)
	}
}
