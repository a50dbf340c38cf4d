package testutil

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/store"
	"github.com/input-output-hk/blobperf/s3types"
)

// FakeStore is an in-memory store.Store for tests.
// Hooks allow failure injection; counters record transfer concurrency.
type FakeStore struct {
	// FS, when set, is read on upload and written on download
	FS billy.Filesystem

	// BucketPageSize is the ListBuckets page size; zero means 1000
	BucketPageSize int

	// TransferDelay is slept inside every upload and download
	TransferDelay time.Duration

	// Hooks run before the fake's own behaviour; a non-nil error is returned as is.
	CreateBucketHook func(name string, call int) error
	ListBucketsHook  func(cursor string, call int) error
	ListObjectsHook  func(bucket, cursor string, call int) error
	UploadHook       func(task s3types.TransferTask) error
	DownloadHook     func(task s3types.TransferTask) error
	DeleteBucketHook func(bucket string) error

	mu      sync.Mutex
	buckets map[string]map[string]fakeObject
	created []string
	calls   map[string]int

	uploads   []s3types.TransferTask
	downloads []s3types.TransferTask
	deleted   []string
	pages     []string

	running atomic.Int64
	peak    atomic.Int64
}

type fakeObject struct {
	data      []byte
	composite bool
}

var _ store.Store = (*FakeStore)(nil)

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		buckets: make(map[string]map[string]fakeObject),
		calls:   make(map[string]int),
	}
}

// AddBucket creates a bucket directly.
func (f *FakeStore) AddBucket(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addBucketLocked(name)
}

// PutObject stores a primitive object directly.
func (f *FakeStore) PutObject(bucket, key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addBucketLocked(bucket)
	f.buckets[bucket][key] = fakeObject{data: data}
}

// PutComposite stores a composite entry (directory marker) directly.
func (f *FakeStore) PutComposite(bucket, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addBucketLocked(bucket)
	f.buckets[bucket][key] = fakeObject{composite: true}
}

func (f *FakeStore) addBucketLocked(name string) {
	if _, ok := f.buckets[name]; !ok {
		f.buckets[name] = make(map[string]fakeObject)
		f.created = append(f.created, name)
	}
}

// Object returns the data stored under bucket/key.
func (f *FakeStore) Object(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.buckets[bucket][key]
	return obj.data, ok
}

// BucketNames returns the existing buckets in creation order.
func (f *FakeStore) BucketNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.buckets))
	for _, name := range f.created {
		if _, ok := f.buckets[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Uploads returns the upload tasks received, in call order.
func (f *FakeStore) Uploads() []s3types.TransferTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]s3types.TransferTask(nil), f.uploads...)
}

// Downloads returns the download tasks received, in call order.
func (f *FakeStore) Downloads() []s3types.TransferTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]s3types.TransferTask(nil), f.downloads...)
}

// Deleted returns the buckets deleted, in call order.
func (f *FakeStore) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// Pages returns a log of every listing request as "op:bucket:cursor".
func (f *FakeStore) Pages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pages...)
}

// Calls returns how many times op was invoked.
func (f *FakeStore) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// PeakConcurrency returns the highest number of simultaneous transfers seen.
func (f *FakeStore) PeakConcurrency() int64 {
	return f.peak.Load()
}

func (f *FakeStore) call(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.calls[op]
	f.calls[op] = n + 1
	return n
}

// CreateBucketIfAbsent implements store.Store.
func (f *FakeStore) CreateBucketIfAbsent(_ context.Context, name string) (s3types.Bucket, error) {
	n := f.call("CreateBucket")
	if f.CreateBucketHook != nil {
		if err := f.CreateBucketHook(name, n); err != nil {
			return s3types.Bucket{}, err
		}
	}
	f.AddBucket(name)
	return s3types.Bucket{Name: name, CreationDate: time.Now()}, nil
}

// ListBuckets implements store.Store. Cursors are decimal offsets.
func (f *FakeStore) ListBuckets(_ context.Context, cursor string) (store.BucketPage, error) {
	n := f.call("ListBuckets")
	if f.ListBucketsHook != nil {
		if err := f.ListBucketsHook(cursor, n); err != nil {
			return store.BucketPage{}, err
		}
	}

	names := f.BucketNames()
	sort.Strings(names)

	f.mu.Lock()
	f.pages = append(f.pages, "buckets::"+cursor)
	f.mu.Unlock()

	size := f.BucketPageSize
	if size <= 0 {
		size = 1000
	}
	start, err := offset(cursor)
	if err != nil {
		return store.BucketPage{}, err
	}

	var page store.BucketPage
	end := min(start+size, len(names))
	for _, name := range names[min(start, len(names)):end] {
		page.Buckets = append(page.Buckets, s3types.Bucket{Name: name})
	}
	if end < len(names) {
		page.Next = strconv.Itoa(end)
	}
	return page, nil
}

// ListObjects implements store.Store. Cursors are decimal offsets.
func (f *FakeStore) ListObjects(_ context.Context, bucket, cursor string, pageSize int32) (store.ObjectPage, error) {
	n := f.call("ListObjects")
	if f.ListObjectsHook != nil {
		if err := f.ListObjectsHook(bucket, cursor, n); err != nil {
			return store.ObjectPage{}, err
		}
	}

	f.mu.Lock()
	f.pages = append(f.pages, "objects:"+bucket+":"+cursor)
	objects, ok := f.buckets[bucket]
	keys := make([]string, 0, len(objects))
	for k := range objects {
		keys = append(keys, k)
	}
	f.mu.Unlock()

	if !ok {
		return store.ObjectPage{}, errors.NewBucketError("listObjects", bucket, errors.ErrBucketNotFound)
	}
	sort.Strings(keys)

	start, err := offset(cursor)
	if err != nil {
		return store.ObjectPage{}, err
	}

	var page store.ObjectPage
	end := min(start+int(pageSize), len(keys))
	for _, key := range keys[min(start, len(keys)):end] {
		f.mu.Lock()
		obj := f.buckets[bucket][key]
		f.mu.Unlock()

		kind := s3types.ObjectKindPrimitive
		if obj.composite {
			kind = s3types.ObjectKindComposite
		}
		page.Objects = append(page.Objects, s3types.Object{Key: key, Size: int64(len(obj.data)), Kind: kind})
	}
	if end < len(keys) {
		page.Next = strconv.Itoa(end)
	}
	return page, nil
}

// UploadObject implements store.Store.
func (f *FakeStore) UploadObject(_ context.Context, task s3types.TransferTask) error {
	defer f.enter()()

	f.mu.Lock()
	f.uploads = append(f.uploads, task)
	f.mu.Unlock()

	if f.UploadHook != nil {
		if err := f.UploadHook(task); err != nil {
			return err
		}
	}

	var data []byte
	if f.FS != nil {
		file, err := f.FS.Open(task.LocalPath)
		if err != nil {
			return err
		}
		defer file.Close()
		if data, err = io.ReadAll(file); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	objects, ok := f.buckets[task.Bucket]
	if !ok {
		return errors.NewBucketError("upload", task.Bucket, errors.ErrBucketNotFound)
	}
	objects[task.Key] = fakeObject{data: data}
	return nil
}

// DownloadObject implements store.Store.
func (f *FakeStore) DownloadObject(_ context.Context, task s3types.TransferTask) error {
	defer f.enter()()

	f.mu.Lock()
	f.downloads = append(f.downloads, task)
	obj, ok := f.buckets[task.Bucket][task.Key]
	f.mu.Unlock()

	if f.DownloadHook != nil {
		if err := f.DownloadHook(task); err != nil {
			return err
		}
	}
	if !ok {
		return errors.NewObjectError("download", task.Bucket, task.Key, errors.ErrObjectNotFound)
	}

	if f.FS != nil {
		file, err := f.FS.Create(task.LocalPath)
		if err != nil {
			return err
		}
		defer file.Close()
		if _, err := file.Write(obj.data); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBucketIfPresent implements store.Store.
func (f *FakeStore) DeleteBucketIfPresent(_ context.Context, bucket string) error {
	f.call("DeleteBucket")
	if f.DeleteBucketHook != nil {
		if err := f.DeleteBucketHook(bucket); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buckets[bucket]; ok {
		delete(f.buckets, bucket)
		f.deleted = append(f.deleted, bucket)
	}
	return nil
}

// enter records a transfer start and returns the matching exit func.
func (f *FakeStore) enter() func() {
	n := f.running.Add(1)
	for {
		cur := f.peak.Load()
		if n <= cur || f.peak.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.TransferDelay > 0 {
		time.Sleep(f.TransferDelay)
	}
	return func() { f.running.Add(-1) }
}

func offset(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad cursor %q", cursor)
	}
	return n, nil
}
