package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"boards_catalog_v1/internal/cache"
	"boards_catalog_v1/internal/event"
	"boards_catalog_v1/internal/model"
	"boards_catalog_v1/internal/repository"
)

// ==================== 测试辅助 ====================

const (
	testUserID  = "3f2c9a1e-5b7d-4c8e-9f10-2a3b4c5d6e7f"
	otherUserID = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

var (
	testUser  = &model.Principal{UserID: testUserID, Email: "seller@example.com", Role: model.RoleAuthenticated}
	otherUser = &model.Principal{UserID: otherUserID, Email: "other@example.com", Role: model.RoleAuthenticated}
	testAdmin = &model.Principal{UserID: otherUserID, Email: "admin@example.com", Role: model.RoleAdmin}
)

// memoryProvider 内存存储，记录上传与删除
type memoryProvider struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	failAt  int
	uploads int
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{objects: make(map[string][]byte)}
}

func (p *memoryProvider) Upload(_ context.Context, data []byte, key, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploads++
	if p.failAt > 0 && p.uploads == p.failAt {
		return "", errors.New("storage unavailable")
	}
	u := "https://cdn.example.com/listing-images/" + key
	p.objects[u] = data
	return u, nil
}

func (p *memoryProvider) Delete(_ context.Context, u string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.objects, u)
	p.deleted = append(p.deleted, u)
	return nil
}

func (p *memoryProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.objects)
}

type publishedEvent struct {
	subject string
	event   event.ListingEvent
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	evt, _ := data.(event.ListingEvent)
	p.events = append(p.events, publishedEvent{subject: subject, event: evt})
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.subject)
	}
	return out
}

type countingObserver struct {
	calls map[string]int
}

func (o *countingObserver) ObserveMutation(action, result string) {
	o.calls[action+":"+result]++
}

type testEnv struct {
	db        *gorm.DB
	repo      repository.ListingRepository
	provider  *memoryProvider
	cache     *cache.MemoryCache
	publisher *recordingPublisher
	listings  *ListingService
	bulk      *BulkService
	query     *QueryService
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.Listing{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	db := setupServiceTestDB(t)
	repo := repository.NewListingRepository(db)
	provider := newMemoryProvider()
	viewCache := cache.NewMemoryCache(time.Minute)
	publisher := &recordingPublisher{}
	log := zap.NewNop()

	return &testEnv{
		db:        db,
		repo:      repo,
		provider:  provider,
		cache:     viewCache,
		publisher: publisher,
		listings:  NewListingService(repo, NewStorageServiceWithProvider(provider, 0), viewCache, publisher, log),
		bulk:      NewBulkService(repo, viewCache, publisher, log),
		query:     NewQueryService(repo, viewCache, log),
	}
}

func (e *testEnv) countRows(t *testing.T) int64 {
	var n int64
	require.NoError(t, e.db.Model(&model.Listing{}).Count(&n).Error)
	return n
}

func pngFile(name string) ImageFile {
	return ImageFile{Filename: name, ContentType: "image/png", Data: testPNG}
}

func createListing(t *testing.T, env *testEnv, p *model.Principal, title string) *model.Listing {
	res := env.listings.CreateListing(context.Background(), p, ListingForm{Values: url.Values{"title": {title}, "price": {"25"}}})
	require.True(t, res.Success, res.Message)
	return res.Listing
}

// ==================== 创建 ====================

func TestListingService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.listings.CreateListing(ctx, testUser, ListingForm{
		Values: url.Values{"title": {"Red Longboard"}, "price": {"49.99"}, "is_available": {"on"}},
		Images: []ImageFile{pngFile("deck.png")},
	})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Listing created successfully!", res.Message)

	stored, err := env.repo.GetBySlug(ctx, "red-longboard")
	require.NoError(t, err)
	assert.Equal(t, "Red Longboard", stored.Title)
	require.NotNil(t, stored.Price)
	assert.InDelta(t, 49.99, *stored.Price, 0.001)
	assert.True(t, stored.IsAvailable)
	assert.Equal(t, testUserID, stored.UserID)
	require.Len(t, stored.ImageURLs, 1)
	assert.True(t, strings.HasSuffix(stored.ImageURLs[0], "-deck.png"))
	assert.Equal(t, []string{event.SubjectListingCreated}, env.publisher.subjects())
}

func TestListingService_Create_Failures(t *testing.T) {
	tests := []struct {
		name      string
		principal *model.Principal
		form      ListingForm
		wantKind  ErrorKind
		wantMsg   string
		field     string
	}{
		{
			name:     "未登录",
			form:     ListingForm{Values: url.Values{"title": {"Red Longboard"}}},
			wantKind: KindUnauthenticated,
			wantMsg:  "Authentication Error: You must be logged in to create a listing.",
		},
		{
			name:      "标题过短",
			principal: testUser,
			form:      ListingForm{Values: url.Values{"title": {"Deck"}}},
			wantKind:  KindValidationFailed,
			field:     "title",
		},
		{
			name:      "价格不是数字",
			principal: testUser,
			form:      ListingForm{Values: url.Values{"title": {"Red Longboard"}, "price": {"abc"}}},
			wantKind:  KindValidationFailed,
			field:     "price",
		},
		{
			name:      "非图片文件",
			principal: testUser,
			form: ListingForm{
				Values: url.Values{"title": {"Red Longboard"}},
				Images: []ImageFile{pngFile("ok.png"), {Filename: "notes.txt", ContentType: "text/plain", Data: []byte("hi")}},
			},
			wantKind: KindUploadFailed,
			wantMsg:  `File "notes.txt" is not an image.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			res := env.listings.CreateListing(context.Background(), tt.principal, tt.form)
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantKind, res.Kind)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, res.Message)
			}
			if tt.field != "" {
				assert.NotEmpty(t, res.Errors[tt.field])
			}
			assert.Zero(t, env.countRows(t), "失败时不应写库")
			assert.Zero(t, env.provider.count(), "失败时不应留下图片")
			assert.Empty(t, env.publisher.subjects())
		})
	}
}

func TestListingService_Create_ValidationCleansUploads(t *testing.T) {
	env := newTestEnv(t)

	res := env.listings.CreateListing(context.Background(), testUser, ListingForm{
		Values: url.Values{"title": {"abc"}},
		Images: []ImageFile{pngFile("a.png"), pngFile("b.png")},
	})
	assert.Equal(t, KindValidationFailed, res.Kind)
	assert.Len(t, env.provider.deleted, 2)
	assert.Zero(t, env.provider.count())
}

func TestListingService_Create_UploadFailure(t *testing.T) {
	env := newTestEnv(t)
	env.provider.failAt = 2

	res := env.listings.CreateListing(context.Background(), testUser, ListingForm{
		Values: url.Values{"title": {"Red Longboard"}},
		Images: []ImageFile{pngFile("a.png"), pngFile("b.png")},
	})
	assert.Equal(t, KindUploadFailed, res.Kind)
	assert.Equal(t, `Failed to upload image "b.png".`, res.Message)
	assert.Zero(t, env.countRows(t))
	assert.Zero(t, env.provider.count())
}

func TestListingService_Create_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createListing(t, env, testUser, "Red Longboard")

	res := env.listings.CreateListing(ctx, testUser, ListingForm{
		Values: url.Values{"title": {"red longboard!"}},
		Images: []ImageFile{pngFile("a.png")},
	})
	assert.False(t, res.Success)
	assert.Equal(t, KindConflict, res.Kind)
	assert.Contains(t, res.Message, "already exists")
	assert.Equal(t, int64(1), env.countRows(t))
	assert.Zero(t, env.provider.count())
}

func TestListingService_Create_DefaultsAvailable(t *testing.T) {
	env := newTestEnv(t)
	listing := createListing(t, env, testUser, "Blue Cruiser")
	assert.True(t, listing.IsAvailable)

	res := env.listings.CreateListing(context.Background(), testUser, ListingForm{
		Values: url.Values{"title": {"Sold Cruiser"}, "is_available": {"off"}},
	})
	require.True(t, res.Success)
	assert.False(t, res.Listing.IsAvailable)
}

// ==================== 更新 ====================

func TestListingService_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.listings.CreateListing(ctx, testUser, ListingForm{
		Values: url.Values{"title": {"Red Longboard"}, "price": {"49.99"}},
		Images: []ImageFile{pngFile("one.png"), pngFile("two.png")},
	})
	require.True(t, created.Success)
	old := created.Listing.ImageURLs

	res := env.listings.UpdateListing(ctx, testUser, created.Listing.ID, ListingForm{
		Values: url.Values{
			"title":          {"Green Pintail"},
			"price":          {""},
			"current_images": {`["` + old[1] + `","` + old[0] + `"]`},
		},
		Images: []ImageFile{pngFile("three.png")},
	})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Listing updated successfully!", res.Message)
	assert.Equal(t, "green-pintail", res.NewSlug)

	stored, err := env.repo.GetByID(ctx, created.Listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Green Pintail", stored.Title)
	assert.Nil(t, stored.Price)
	require.Len(t, stored.ImageURLs, 3)
	assert.Equal(t, old[1], stored.ImageURLs[0])
	assert.Equal(t, old[0], stored.ImageURLs[1])
	assert.True(t, strings.HasSuffix(stored.ImageURLs[2], "-three.png"))
	assert.Equal(t, testUserID, stored.UserID)
}

func TestListingService_Update_AppendsWithoutCurrentImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.listings.CreateListing(ctx, testUser, ListingForm{
		Values: url.Values{"title": {"Red Longboard"}},
		Images: []ImageFile{pngFile("one.png")},
	})
	require.True(t, created.Success)

	res := env.listings.UpdateListing(ctx, testUser, created.Listing.ID, ListingForm{
		Values: url.Values{},
		Images: []ImageFile{pngFile("two.png")},
	})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "red-longboard", res.NewSlug)
	require.Len(t, res.Listing.ImageURLs, 2)
	assert.Equal(t, created.Listing.ImageURLs[0], res.Listing.ImageURLs[0])
}

func TestListingService_Update_Failures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mine := createListing(t, env, testUser, "Red Longboard")
	createListing(t, env, testUser, "Blue Cruiser")

	t.Run("未登录", func(t *testing.T) {
		res := env.listings.UpdateListing(ctx, nil, mine.ID, ListingForm{Values: url.Values{"title": {"Whatever title"}}})
		assert.Equal(t, KindUnauthenticated, res.Kind)
		assert.Equal(t, "Authentication Error: You must be logged in to update a listing.", res.Message)
	})

	t.Run("标题冲突", func(t *testing.T) {
		res := env.listings.UpdateListing(ctx, testUser, mine.ID, ListingForm{Values: url.Values{"title": {"Blue Cruiser"}}})
		assert.Equal(t, KindConflict, res.Kind)
		assert.Equal(t, "Database Error: Another listing with this title already exists. Please choose a different title.", res.Message)
	})

	t.Run("记录不存在", func(t *testing.T) {
		res := env.listings.UpdateListing(ctx, testUser, "2b1c3d4e-0000-4000-8000-000000000000", ListingForm{Values: url.Values{"title": {"Whatever title"}}})
		assert.Equal(t, KindNotFound, res.Kind)
		assert.Equal(t, "Listing not found or you do not have permission to edit it.", res.Message)
	})

	t.Run("他人的记录", func(t *testing.T) {
		res := env.listings.UpdateListing(ctx, otherUser, mine.ID, ListingForm{
			Values: url.Values{"is_available": {"off"}},
			Images: []ImageFile{pngFile("x.png")},
		})
		assert.Equal(t, KindNotFound, res.Kind)
		assert.Zero(t, env.provider.count())
	})

	t.Run("管理员不受限制", func(t *testing.T) {
		res := env.listings.UpdateListing(ctx, testAdmin, mine.ID, ListingForm{Values: url.Values{"is_available": {"off"}}})
		require.True(t, res.Success, res.Message)
		assert.False(t, res.Listing.IsAvailable)
		assert.Equal(t, testUserID, res.Listing.UserID)
	})

	t.Run("非法图片列表", func(t *testing.T) {
		res := env.listings.UpdateListing(ctx, testUser, mine.ID, ListingForm{Values: url.Values{"current_images": {"nope"}}})
		assert.Equal(t, KindValidationFailed, res.Kind)
		assert.NotEmpty(t, res.Errors["current_images"])
	})
}

// ==================== 删除 ====================

func TestListingService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.listings.CreateListing(ctx, testUser, ListingForm{
		Values: url.Values{"title": {"Red Longboard"}},
		Images: []ImageFile{pngFile("one.png")},
	})
	require.True(t, created.Success)

	res := env.listings.DeleteListing(ctx, nil, created.Listing.ID)
	assert.Equal(t, KindUnauthenticated, res.Kind)

	res = env.listings.DeleteListing(ctx, otherUser, created.Listing.ID)
	assert.Equal(t, KindNotFound, res.Kind)
	assert.Equal(t, int64(1), env.countRows(t))

	res = env.listings.DeleteListing(ctx, testUser, created.Listing.ID)
	require.True(t, res.Success)
	assert.Equal(t, "Listing deleted.", res.Message)
	assert.Zero(t, env.countRows(t))
	assert.Zero(t, env.provider.count(), "删除后应清理图片")

	res = env.listings.DeleteListing(ctx, testUser, created.Listing.ID)
	assert.Equal(t, KindNotFound, res.Kind)
}

// ==================== 图片排序 ====================

func TestListingService_ReorderImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.listings.CreateListing(ctx, testUser, ListingForm{
		Values: url.Values{"title": {"Red Longboard"}},
		Images: []ImageFile{pngFile("a.png"), pngFile("b.png"), pngFile("c.png")},
	})
	require.True(t, created.Success)
	imgs := created.Listing.ImageURLs

	res := env.listings.ReorderImages(ctx, testUser, created.Listing.ID, ImageOp{Action: ImageOpMove, From: 2, To: 0})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, model.ImageList{imgs[2], imgs[0], imgs[1]}, res.Listing.ImageURLs)

	res = env.listings.ReorderImages(ctx, testUser, created.Listing.ID, ImageOp{Action: ImageOpRemove, From: 1})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, model.ImageList{imgs[2], imgs[1]}, res.Listing.ImageURLs)
	assert.Contains(t, env.provider.deleted, imgs[0])

	res = env.listings.ReorderImages(ctx, testUser, created.Listing.ID, ImageOp{Action: ImageOpMove, From: 0, To: 5})
	assert.Equal(t, KindValidationFailed, res.Kind)

	res = env.listings.ReorderImages(ctx, testUser, created.Listing.ID, ImageOp{Action: "shuffle"})
	assert.Equal(t, KindValidationFailed, res.Kind)

	res = env.listings.ReorderImages(ctx, otherUser, created.Listing.ID, ImageOp{Action: ImageOpMove, From: 0, To: 1})
	assert.Equal(t, KindNotFound, res.Kind)

	// 失败时事务回滚，图片顺序不变
	stored, err := env.repo.GetByID(ctx, created.Listing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ImageList{imgs[2], imgs[1]}, stored.ImageURLs)

	res = env.listings.ReorderImages(ctx, testUser, "not-a-uuid", ImageOp{Action: ImageOpRemove, From: 0})
	assert.Equal(t, KindNotFound, res.Kind)
}

// ==================== 缓存与指标 ====================

func TestListingService_InvalidatesViews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createListing(t, env, testUser, "Red Longboard")

	page, err := env.query.GetListingsPage(ctx, repository.ListingQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Pagination.TotalCount)

	createListing(t, env, testUser, "Blue Cruiser")

	page, err = env.query.GetListingsPage(ctx, repository.ListingQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Pagination.TotalCount, "写入后缓存应失效")
}

func TestListingService_Observer(t *testing.T) {
	env := newTestEnv(t)
	obs := &countingObserver{calls: map[string]int{}}
	env.listings.SetObserver(obs)

	createListing(t, env, testUser, "Red Longboard")
	env.listings.CreateListing(context.Background(), nil, ListingForm{})

	assert.Equal(t, 1, obs.calls["create:success"])
	assert.Equal(t, 1, obs.calls["create:unauthenticated"])
}
