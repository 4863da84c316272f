package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore stores attachments in Cloudinary under a fixed folder,
// keeping the caller-provided path as the public id.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cloudinaryURL string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("initializing cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: "message-attachments"}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, objectPath, contentType string, data io.Reader) error {
	_, err := s.cld.Upload.Upload(ctx, data, uploader.UploadParams{
		PublicID: s.publicID(objectPath),
	})
	if err != nil {
		return fmt.Errorf("cloudinary upload: %w", err)
	}
	return nil
}

func (s *CloudinaryStore) PublicURL(objectPath string) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/%s",
		s.cld.Config.Cloud.CloudName, s.publicID(objectPath))
}

// publicID namespaces the path under the attachment folder and drops the
// extension, which Cloudinary manages itself.
func (s *CloudinaryStore) publicID(objectPath string) string {
	if idx := strings.LastIndex(objectPath, "."); idx > strings.LastIndex(objectPath, "/") {
		objectPath = objectPath[:idx]
	}
	return s.folder + "/" + objectPath
}
