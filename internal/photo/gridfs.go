package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"licensing/pkg/platform/sentinel"
)

// GridFSSource reads gridfs:<objectid> refs from a GridFS bucket.
type GridFSSource struct {
	bucket   *gridfs.Bucket
	maxBytes int64
}

func NewGridFSSource(db *mongo.Database, bucketName string, maxBytes int64) (*GridFSSource, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket %s: %w", bucketName, err)
	}
	return &GridFSSource{bucket: bucket, maxBytes: maxBytes}, nil
}

// ParseGridFSRef extracts the object id of a gridfs:<hex> ref.
func ParseGridFSRef(ref string) (primitive.ObjectID, error) {
	if len(ref) < len(gridFSPrefix) || !strings.EqualFold(ref[:len(gridFSPrefix)], gridFSPrefix) {
		return primitive.NilObjectID, fmt.Errorf("not a gridfs ref: %q", ref)
	}
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(ref[len(gridFSPrefix):]))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("gridfs ref %q: %w", ref, err)
	}
	return oid, nil
}

func (s *GridFSSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	oid, err := ParseGridFSRef(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrNotFound, err)
	}

	stream, err := s.bucket.OpenDownloadStream(oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, fmt.Errorf("gridfs photo %s: %w", oid.Hex(), sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open gridfs photo: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer stream.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := stream.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set gridfs deadline: %w", err)
		}
	}
	if f := stream.GetFile(); f != nil && f.Length > s.maxBytes {
		return nil, fmt.Errorf("photo is %d bytes, limit %d", f.Length, s.maxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(stream, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read gridfs photo: %w", err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, fmt.Errorf("photo exceeds %d bytes", s.maxBytes)
	}
	return body, nil
}
