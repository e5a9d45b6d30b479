// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package s3 reads input from, and writes tables to, Amazon S3.
package s3

import (
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
	"github.com/sparkify/lake"
)

// maxDeleteBatch is the most keys one DeleteObjects call accepts.
const maxDeleteBatch = 1000

// NewSession returns an AWS session for region. When id is set the static
// key pair is used, otherwise the SDK's default credential chain.
func NewSession(region, id, secret string) (*session.Session, error) {
	cfg := &aws.Config{
		Region: aws.String(region),
	}
	if id != "" {
		cfg.Credentials = credentials.NewStaticCredentials(id, secret, "")
	}
	sess, err := session.NewSession(cfg)
	return sess, errors.Wrap(err, "getting aws session")
}

// RawSource is a lake.RawSource over a listed set of objects in one bucket.
type RawSource struct {
	client s3iface.S3API
	bucket string
	keys   []string
	objIdx *uint64
}

type objReader struct {
	name string
	body io.ReadCloser
}

func (o *objReader) Read(buf []byte) (n int, err error) {
	return o.body.Read(buf)
}

func (o *objReader) Close() error {
	return o.body.Close()
}

func (o *objReader) Name() string {
	return o.name
}

// NextReader implements lake.RawSource, fetching the next object.
func (rs *RawSource) NextReader(ctx context.Context) (lake.NamedReadCloser, error) {
	idx := atomic.AddUint64(rs.objIdx, 1) - 1
	if int(idx) >= len(rs.keys) {
		return nil, io.EOF
	}
	key := rs.keys[idx]
	result, err := rs.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching s3://%s/%s", rs.bucket, key)
	}
	return &objReader{name: key, body: result.Body}, nil
}

// Len returns the number of objects in the source.
func (rs *RawSource) Len() int { return len(rs.keys) }

// Storage is a lake.Storage under a key prefix of one bucket.
type Storage struct {
	client   s3iface.S3API
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
}

// NewStorage returns Storage for bucket/prefix using sess.
func NewStorage(sess *session.Session, bucket, prefix string) *Storage {
	return NewStorageWithClient(s3.New(sess), s3manager.NewUploader(sess), bucket, prefix)
}

// NewStorageWithClient returns Storage for bucket/prefix using the given
// client and uploader.
func NewStorageWithClient(client s3iface.S3API, uploader s3manageriface.UploaderAPI, bucket, prefix string) *Storage {
	return &Storage{
		client:   client,
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
	}
}

func (s *Storage) key(rel string) string {
	return strings.TrimPrefix(path.Join(s.prefix, rel), "/")
}

// list calls fn with the key of every object whose key starts with prefix.
func (s *Storage) list(ctx context.Context, prefix string, fn func(key string) error) error {
	var ferr error
	err := s.client.ListObjectsPagesWithContext(ctx, &s3.ListObjectsInput{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsOutput, lastPage bool) bool {
		for _, obj := range page.Contents {
			if ferr = fn(aws.StringValue(obj.Key)); ferr != nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return errors.Wrapf(err, "listing s3://%s/%s", s.bucket, prefix)
	}
	return ferr
}

// Open implements lake.Storage. pattern is matched against object keys
// relative to the storage prefix with lake.MatchKey.
func (s *Storage) Open(ctx context.Context, pattern string) (lake.RawSource, error) {
	root := s.prefix
	if root != "" {
		root += "/"
	}
	listPrefix := root + lake.StaticPrefix(pattern)
	var keys []string
	err := s.list(ctx, listPrefix, func(key string) error {
		if strings.HasSuffix(key, "/") || !strings.HasPrefix(key, root) {
			return nil
		}
		ok, err := lake.MatchKey(pattern, strings.TrimPrefix(key, root))
		if ok {
			keys = append(keys, key)
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", pattern)
	}
	if len(keys) == 0 {
		return nil, errors.Errorf("no input objects match %s in s3://%s/%s", pattern, s.bucket, s.prefix)
	}
	sort.Strings(keys)
	idx := uint64(0)
	return &RawSource{
		client: s.client,
		bucket: s.bucket,
		keys:   keys,
		objIdx: &idx,
	}, nil
}

// Clear implements lake.Sink by deleting the object at prefix and every
// object below it.
func (s *Storage) Clear(ctx context.Context, prefix string) error {
	full := s.key(prefix)
	if strings.Trim(prefix, "/") == "" {
		return errors.New("refusing to clear the storage root")
	}
	var batch []*s3.ObjectIdentifier
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		out, err := s.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return errors.Wrapf(err, "deleting under s3://%s/%s", s.bucket, full)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return errors.Errorf("deleting s3://%s/%s: %s (%d errors)", s.bucket, aws.StringValue(e.Key), aws.StringValue(e.Message), len(out.Errors))
		}
		batch = nil
		return nil
	}
	err := s.list(ctx, full, func(key string) error {
		if key != full && !strings.HasPrefix(key, full+"/") {
			return nil
		}
		batch = append(batch, &s3.ObjectIdentifier{Key: aws.String(key)})
		if len(batch) == maxDeleteBatch {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}

// Put implements lake.Sink by uploading r to key.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader) error {
	full := s.key(key)
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(full),
		Body:   r,
	})
	return errors.Wrapf(err, "uploading s3://%s/%s", s.bucket, full)
}
