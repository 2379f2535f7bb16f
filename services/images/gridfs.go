package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const bucketName = "card_images"

// GridFSStore implements Store on a MongoDB GridFS bucket. Public URLs are
// baseURL + "/images/" + filename; the API layer serves them with a one-year
// cache-control header.
type GridFSStore struct {
	bucket  *gridfs.Bucket
	baseURL string
}

// NewGridFSStore creates an image store backed by GridFS
func NewGridFSStore(db *mongo.Database, baseURL string) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("failed to create gridfs bucket: %w", err)
	}
	return &GridFSStore{
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// PublicURL returns the public URL for a stored filename
func (s *GridFSStore) PublicURL(filename string) string {
	return s.baseURL + "/images/" + filename
}

// filenameFromURL strips the base URL and path prefix from a public URL
func (s *GridFSStore) filenameFromURL(publicURL string) string {
	idx := strings.LastIndex(publicURL, "/images/")
	if idx < 0 {
		return ""
	}
	return publicURL[idx+len("/images/"):]
}

func (s *GridFSStore) applyDeadline(ctx context.Context) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.bucket.SetWriteDeadline(deadline)
		_ = s.bucket.SetReadDeadline(deadline)
		return
	}
	_ = s.bucket.SetWriteDeadline(time.Now().Add(30 * time.Second))
	_ = s.bucket.SetReadDeadline(time.Now().Add(30 * time.Second))
}

func (s *GridFSStore) Upload(ctx context.Context, data []byte, path string, contentType string) (string, error) {
	s.applyDeadline(ctx)

	// Re-uploads replace the previous object under the same path
	if _, err := s.deleteByFilename(path); err != nil {
		return "", err
	}

	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	if _, err := s.bucket.UploadFromStream(path, bytes.NewReader(data), opts); err != nil {
		return "", fmt.Errorf("failed to upload image %s: %w", path, err)
	}
	return s.PublicURL(path), nil
}

func (s *GridFSStore) Delete(ctx context.Context, publicURL string) (bool, error) {
	s.applyDeadline(ctx)
	filename := s.filenameFromURL(publicURL)
	if filename == "" {
		return false, nil
	}
	return s.deleteByFilename(filename)
}

func (s *GridFSStore) deleteByFilename(filename string) (bool, error) {
	cursor, err := s.bucket.Find(bson.M{"filename": filename})
	if err != nil {
		return false, fmt.Errorf("failed to find image %s: %w", filename, err)
	}
	defer cursor.Close(context.Background())

	deleted := false
	for cursor.Next(context.Background()) {
		var file struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&file); err != nil {
			return deleted, fmt.Errorf("failed to decode image file doc: %w", err)
		}
		if err := s.bucket.Delete(file.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete image %s: %w", filename, err)
		}
		deleted = true
	}
	return deleted, nil
}

func (s *GridFSStore) Exists(ctx context.Context, publicURL string) (bool, error) {
	s.applyDeadline(ctx)
	filename := s.filenameFromURL(publicURL)
	if filename == "" {
		return false, nil
	}

	cursor, err := s.bucket.Find(bson.M{"filename": filename}, options.GridFSFind().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to find image %s: %w", filename, err)
	}
	defer cursor.Close(context.Background())
	return cursor.Next(context.Background()), nil
}

func (s *GridFSStore) Serve(ctx context.Context, filename string, w io.Writer) (string, error) {
	s.applyDeadline(ctx)

	cursor, err := s.bucket.Find(bson.M{"filename": filename}, options.GridFSFind().SetLimit(1))
	if err != nil {
		return "", fmt.Errorf("failed to find image %s: %w", filename, err)
	}
	var file struct {
		ID       primitive.ObjectID `bson:"_id"`
		Metadata struct {
			ContentType string `bson:"contentType"`
		} `bson:"metadata"`
	}
	found := cursor.Next(context.Background())
	if found {
		err = cursor.Decode(&file)
	}
	cursor.Close(context.Background())
	if !found {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to decode image file doc: %w", err)
	}

	if _, err := s.bucket.DownloadToStream(file.ID, w); err != nil {
		return "", fmt.Errorf("failed to stream image %s: %w", filename, err)
	}

	contentType := file.Metadata.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return contentType, nil
}

// ErrNotFound is returned by Serve when no object exists under the filename
var ErrNotFound = errors.New("image not found")
