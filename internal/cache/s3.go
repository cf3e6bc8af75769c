package cache

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/tile"
)

// S3 implements spec §4.3's "s3" backend against any S3/Swift-compatible
// object store, grounded on the teacher's handleUploadMediaFileS3
// (internal/server/settings.go), which drives minio-go/v7 the same way: a
// shared *minio.Client, PutObject/GetObject/RemoveObject per key.
type S3 struct {
	Bucket      string
	Prefix      string
	UseSentinel bool
	TileSX      int
	TileSY      int
	log         *zap.SugaredLogger
	client      *minio.Client
	readOnly    bool
}

func NewS3(log *zap.SugaredLogger, client *minio.Client, bucket, prefix string, tileSX, tileSY int) *S3 {
	return &S3{
		Bucket:      bucket,
		Prefix:      prefix,
		UseSentinel: true,
		TileSX:      tileSX,
		TileSY:      tileSY,
		log:         log,
		client:      client,
	}
}

func (s *S3) object(t *tile.Tile) string {
	return s.Prefix + t.CacheKey()
}

func (s *S3) Exists(ctx context.Context, t *tile.Tile) (bool, error) {
	_, err := s.client.StatObject(ctx, s.Bucket, s.object(t), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3 stat: %w", err)
	}
	return true, nil
}

func (s *S3) Get(ctx context.Context, t *tile.Tile) (bool, error) {
	obj, err := s.client.GetObject(ctx, s.Bucket, s.object(t), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3 get: %w", err)
	}
	defer obj.Close()
	info, err := obj.Stat()
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3 stat: %w", err)
	}
	raw, err := ioutil.ReadAll(obj)
	if err != nil {
		return false, fmt.Errorf("s3 read: %w", err)
	}
	data, err := decodeFromStore(raw, s.TileSX, s.TileSY)
	if err != nil {
		return false, fmt.Errorf("expanding sentinel: %w", err)
	}
	t.EncodedData = data
	t.MTime = info.LastModified
	return true, nil
}

func (s *S3) Set(ctx context.Context, t *tile.Tile) error {
	if s.readOnly {
		return nil
	}
	data, err := encodeForStore(t, s.TileSX, s.TileSY, s.UseSentinel)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	contentType := "application/octet-stream"
	if t.Tileset.Format == "png" {
		contentType = "image/png"
	} else if t.Tileset.Format == "jpeg" || t.Tileset.Format == "jpg" {
		contentType = "image/jpeg"
	}
	_, err = s.client.PutObject(ctx, s.Bucket, s.object(t), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("s3 put: %w", err)
	}
	return nil
}

func (s *S3) MultiSet(ctx context.Context, tiles []*tile.Tile) error {
	for _, t := range tiles {
		if err := s.Set(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3) Delete(ctx context.Context, t *tile.Tile) error {
	if s.readOnly {
		return nil
	}
	err := s.client.RemoveObject(ctx, s.Bucket, s.object(t), minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("s3 delete: %w", err)
	}
	return nil
}

func (s *S3) SetReadOnly(ro bool) {
	s.readOnly = ro
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}
