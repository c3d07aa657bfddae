package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/phiguard/internal/models"
)

type storedObject struct {
	body        []byte
	contentType string
	modified    time.Time
}

// fakeS3 is an in-memory object store with a one-object ListObjectsV2 page.
type fakeS3 struct {
	objects map[string]storedObject
	clock   time.Time
	putErr  error
	lists   int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]storedObject{}, clock: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3svc.PutObjectInput, _ ...func(*s3svc.Options)) (*s3svc.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, _ := io.ReadAll(in.Body)
	f.clock = f.clock.Add(time.Minute)
	f.objects[aws.ToString(in.Key)] = storedObject{body: data, contentType: aws.ToString(in.ContentType), modified: f.clock}
	return &s3svc.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3svc.GetObjectInput, _ ...func(*s3svc.Options)) (*s3svc.GetObjectOutput, error) {
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3svc.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3svc.ListObjectsV2Input, _ ...func(*s3svc.Options)) (*s3svc.ListObjectsV2Output, error) {
	f.lists++
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	out := &s3svc.ListObjectsV2Output{}
	if start < len(keys) {
		k := keys[start]
		mod := f.objects[k].modified
		out.Contents = []s3types.Object{{Key: aws.String(k), LastModified: &mod}}
	}
	if start+1 < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strconv.Itoa(start + 1))
	}
	return out, nil
}

func TestKey_Layout(t *testing.T) {
	rec := Record{RunID: "abc", GeneratedAt: time.Date(2026, 1, 9, 23, 0, 0, 0, time.UTC)}
	if got := Key(rec); got != "scans/2026/01/09/abc.json" {
		t.Errorf("Key = %q", got)
	}
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord("111122223333", &models.ScanResult{})
	if !regexp.MustCompile(`^[0-9a-f-]{36}$`).MatchString(rec.RunID) {
		t.Errorf("RunID = %q; want a UUID", rec.RunID)
	}
	if rec.GeneratedAt.Location() != time.UTC {
		t.Error("GeneratedAt must be UTC")
	}
	if !regexp.MustCompile(`^scans/\d{4}/\d{2}/\d{2}/[0-9a-f-]{36}\.json$`).MatchString(Key(rec)) {
		t.Errorf("Key = %q", Key(rec))
	}
}

func TestSave_WritesJSON(t *testing.T) {
	s3 := newFakeS3()
	a := New(s3, "results", zerolog.Nop())
	rec := Record{RunID: "r1", AccountID: "111122223333", GeneratedAt: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)}

	key, err := a.Save(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj := s3.objects[key]
	if obj.contentType != "application/json" {
		t.Errorf("ContentType = %q", obj.contentType)
	}
	if !bytes.Contains(obj.body, []byte(`"run_id": "r1"`)) {
		t.Errorf("body = %s", obj.body)
	}
}

func TestSave_Error(t *testing.T) {
	s3 := newFakeS3()
	s3.putErr = errors.New("AccessDenied")
	_, err := New(s3, "results", zerolog.Nop()).Save(context.Background(), Record{RunID: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestLatest_PicksNewestAcrossPages(t *testing.T) {
	s3 := newFakeS3()
	a := New(s3, "results", zerolog.Nop())
	ctx := context.Background()

	// Write order differs from key order.
	for _, id := range []string{"zzz", "aaa", "mmm"} {
		res := &models.ScanResult{Summary: models.ScanSummary{TotalBuckets: len(id)}}
		rec := Record{RunID: id, GeneratedAt: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), Result: *res}
		if _, err := a.Save(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	got, err := a.Latest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RunID != "mmm" {
		t.Errorf("RunID = %q; want mmm (last written)", got.RunID)
	}
	if s3.lists != 3 {
		t.Errorf("ListObjectsV2 calls = %d; want 3 pages", s3.lists)
	}
}

func TestLatest_Empty(t *testing.T) {
	_, err := New(newFakeS3(), "results", zerolog.Nop()).Latest(context.Background())
	if !errors.Is(err, ErrNoRecords) {
		t.Errorf("err = %v; want ErrNoRecords", err)
	}
}

func TestRoundTripKeepsFixesKey(t *testing.T) {
	s3 := newFakeS3()
	a := New(s3, "results", zerolog.Nop())
	rec := Record{RunID: "r", GeneratedAt: time.Now().UTC(), Result: models.ScanResult{Fixes: []models.FixOutcome{}}}
	key, err := a.Save(context.Background(), rec)
	if err != nil {
		t.Fatal(err)
	}
	got, err := a.Get(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Result.Remediated() {
		t.Error("archived result lost its fixes key")
	}
}
