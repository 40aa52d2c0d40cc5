package export

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
	"github.com/markchipman/cofoundry/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exportNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type memoryUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (u *memoryUploader) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	if u.err != nil {
		return u.err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[key] = body
	return nil
}

func newRepository(t *testing.T) cofoundry.CustomEntityRepository {
	t.Helper()
	defs, err := internal.NewDefinitionRegistry(
		cofoundry.CustomEntityDefinition{Code: "ARTCLE", Name: "Article"},
		cofoundry.CustomEntityDefinition{Code: "EVENTS", Name: "Event"},
	)
	require.NoError(t, err)

	reg := cqs.NewRegistry()
	require.NoError(t, internal.NewHandlers(internal.NewMemoryStore(), defs, nil).Register(reg))
	provider := cqs.RequestContextProvider{Now: func() time.Time { return exportNow }}
	return cofoundry.NewCustomEntityRepository(cqs.NewQueryExecutor(reg, provider), cqs.NewCommandExecutor(reg, provider))
}

func seed(t *testing.T, repo cofoundry.CustomEntityRepository, code, slug string, publish bool) {
	t.Helper()
	_, err := repo.AddCustomEntity(context.Background(), cofoundry.AddCustomEntityCommand{
		CustomEntityDefinitionCode: code,
		Title:                      slug,
		UrlSlug:                    slug,
		Model:                      json.RawMessage(`{"n":1}`),
		Publish:                    publish,
	}, cqs.Explicit(cqs.SystemExecutionContext(exportNow)))
	require.NoError(t, err)
}

func decode(t *testing.T, body []byte) Snapshot {
	t.Helper()
	var s Snapshot
	require.NoError(t, json.Unmarshal(body, &s))
	return s
}

func TestExportDefinitionPagesThroughResults(t *testing.T) {
	repo := newRepository(t)
	for _, slug := range []string{"a", "b", "c"} {
		seed(t, repo, "ARTCLE", slug, true)
	}
	seed(t, repo, "ARTCLE", "draft-only", false)

	up := &memoryUploader{}
	e := NewExporter(repo, up, cofoundry.ExportConfig{Prefix: "/snapshots/", PageSize: 2},
		WithClock(func() time.Time { return exportNow }))

	res, err := e.ExportDefinition(context.Background(), "artcle")
	require.NoError(t, err)
	assert.Equal(t, "ARTCLE", res.CustomEntityDefinitionCode)
	assert.Equal(t, 3, res.Items)
	assert.True(t, strings.HasPrefix(res.Key, "snapshots/artcle/2026/03/01/"), res.Key)
	assert.True(t, strings.HasSuffix(res.Key, ".json"))

	require.Contains(t, up.objects, res.Key)
	snap := decode(t, up.objects[res.Key])
	assert.Equal(t, 3, snap.TotalItems)
	assert.Equal(t, cofoundry.PublishStatusQueryPublished, snap.PublishStatus)
	assert.True(t, snap.ExportedAt.Equal(exportNow))
	slugs := make([]string, 0, len(snap.Items))
	for _, item := range snap.Items {
		slugs = append(slugs, item.UrlSlug)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, slugs)
}

func TestExportDefinitionLatestIncludesDrafts(t *testing.T) {
	repo := newRepository(t)
	seed(t, repo, "ARTCLE", "a", true)
	seed(t, repo, "ARTCLE", "b", false)

	up := &memoryUploader{}
	e := NewExporter(repo, up, cofoundry.ExportConfig{PageSize: 10},
		WithPublishStatus(cofoundry.PublishStatusQueryLatest))

	res, err := e.ExportDefinition(context.Background(), "ARTCLE")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Items)
}

func TestExportAllWritesOneSnapshotPerDefinition(t *testing.T) {
	repo := newRepository(t)
	seed(t, repo, "EVENTS", "launch", true)

	up := &memoryUploader{}
	e := NewExporter(repo, up, cofoundry.ExportConfig{Prefix: "p", PageSize: 5})

	results, err := e.ExportAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "ARTCLE", results[0].CustomEntityDefinitionCode)
	assert.Equal(t, 0, results[0].Items)
	assert.Equal(t, "EVENTS", results[1].CustomEntityDefinitionCode)
	assert.Equal(t, 1, results[1].Items)
	assert.Len(t, up.objects, 2)

	empty := decode(t, up.objects[results[0].Key])
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}

func TestExportErrors(t *testing.T) {
	repo := newRepository(t)
	boom := errors.New("boom")

	_, err := NewExporter(repo, &memoryUploader{err: boom}, cofoundry.ExportConfig{}).ExportDefinition(context.Background(), "ARTCLE")
	assert.ErrorIs(t, err, boom)

	_, err = NewExporter(repo, &memoryUploader{}, cofoundry.ExportConfig{}).ExportDefinition(context.Background(), "NOPE00")
	require.Error(t, err)
	assert.True(t, cofoundry.IsNotFoundError(err))
}

type fakeBuckets struct {
	headErr   error
	createErr error
	created   []string
}

func (f *fakeBuckets) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeBuckets) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = append(f.created, *in.Bucket)
	return &s3.CreateBucketOutput{}, f.createErr
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()
	missing := errors.New("not found")

	existing := &fakeBuckets{}
	require.NoError(t, EnsureBucket(ctx, existing, "b"))
	assert.Empty(t, existing.created)

	created := &fakeBuckets{headErr: missing}
	require.NoError(t, EnsureBucket(ctx, created, "b"))
	assert.Equal(t, []string{"b"}, created.created)

	raced := &fakeBuckets{headErr: missing, createErr: &smithy.GenericAPIError{Code: "BucketAlreadyOwnedByYou"}}
	assert.NoError(t, EnsureBucket(ctx, raced, "b"))

	denied := &fakeBuckets{headErr: missing, createErr: &smithy.GenericAPIError{Code: "AccessDenied"}}
	assert.ErrorContains(t, EnsureBucket(ctx, denied, "b"), "create bucket")
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig(cofoundry.ExportConfig{Bucket: "b"}))
	assert.NoError(t, ValidateConfig(cofoundry.ExportConfig{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"}))
	assert.Error(t, ValidateConfig(cofoundry.ExportConfig{}))
	assert.Error(t, ValidateConfig(cofoundry.ExportConfig{Bucket: "b", AccessKeyID: "k"}))
	assert.Error(t, ValidateConfig(cofoundry.ExportConfig{Bucket: "b", SecretAccessKey: "s"}))
}
