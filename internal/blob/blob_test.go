package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	put     *s3.PutObjectInput
	body    string
	deleted []string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.err
}

func TestPut_BuildsRequestAndURL(t *testing.T) {
	t.Parallel()

	f := &fakeS3{}
	s, err := newS3(f, Config{Bucket: "maru", Region: "ap-northeast-2"})
	require.NoError(t, err)

	u, err := s.Put(context.Background(), Object{
		Key:                "post-files/보고서 1.pdf",
		ContentType:        "application/pdf",
		ContentDisposition: "attachment",
		Size:               3,
		Body:               strings.NewReader("pdf"),
	})
	require.NoError(t, err)
	require.Equal(t, "https://maru.s3.ap-northeast-2.amazonaws.com/post-files/%EB%B3%B4%EA%B3%A0%EC%84%9C%201.pdf", u)
	require.Equal(t, "maru", aws.ToString(f.put.Bucket))
	require.Equal(t, "application/pdf", aws.ToString(f.put.ContentType))
	require.Equal(t, "attachment", aws.ToString(f.put.ContentDisposition))
	require.Equal(t, int64(3), aws.ToInt64(f.put.ContentLength))
	require.Equal(t, "pdf", f.body)

	key, ok := s.KeyFromURL(u)
	require.True(t, ok)
	require.Equal(t, "post-files/보고서 1.pdf", key)
}

func TestKeyFromURL(t *testing.T) {
	t.Parallel()

	s, err := newS3(&fakeS3{}, Config{Bucket: "b", PublicBaseURL: "https://cdn.example.com/assets/"})
	require.NoError(t, err)

	tests := []struct {
		raw  string
		key  string
		isOK bool
	}{
		{"https://cdn.example.com/assets/post-images/a.png", "post-images/a.png", true},
		{"https://CDN.example.com/assets/post-images/a%20b.png", "post-images/a b.png", true},
		{"https://other.example.com/assets/post-images/a.png", "", false},
		{"https://cdn.example.com/elsewhere/a.png", "", false},
		{"https://cdn.example.com/assets/", "", false},
		{"::not a url", "", false},
	}
	for _, tt := range tests {
		key, ok := s.KeyFromURL(tt.raw)
		require.Equal(t, tt.isOK, ok, tt.raw)
		require.Equal(t, tt.key, key, tt.raw)
	}
}

func TestDeleteAndPing(t *testing.T) {
	t.Parallel()

	f := &fakeS3{}
	s, err := newS3(f, Config{Bucket: "b", Region: "us-east-1"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), "post-images/x.png"))
	require.Equal(t, []string{"post-images/x.png"}, f.deleted)
	require.NoError(t, s.Ping(context.Background()))

	f.err = errors.New("access denied")
	require.ErrorContains(t, s.Delete(context.Background(), "k"), "access denied")
	require.Error(t, s.Ping(context.Background()))
}

func TestNewS3_RequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := NewS3(context.Background(), Config{})
	require.Error(t, err)
}

func TestDisabled(t *testing.T) {
	var s Store = Disabled{}
	_, err := s.Put(context.Background(), Object{Key: "k"})
	require.ErrorIs(t, err, ErrDisabled)
	require.NoError(t, s.Delete(context.Background(), "k"))
	_, ok := s.KeyFromURL("https://cdn.test/k")
	require.False(t, ok)
}
