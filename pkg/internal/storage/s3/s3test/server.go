// Package s3test 提供内存版的 S3 兼容服务，供对象存储相关测试使用.
//
// 只实现 BlobStore 用到的请求：桶 HEAD、对象 HEAD/PUT/DELETE. 路径风格为 /{bucket}/{key}.
package s3test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yeisme/clipstudio/pkg/configs"
)

// Server 内存 S3 服务.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	// ExistsAll 为 true 时任何对象 HEAD 都返回 200.
	ExistsAll atomic.Bool
	// Puts 收到的对象写入次数.
	Puts atomic.Int32
}

// NewServer 启动服务，调用方负责 Close.
func NewServer() *Server {
	s := &Server{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))

	return s
}

// Config 返回指向本服务的配置，Endpoint 带 scheme.
func (s *Server) Config() configs.S3Config {
	return configs.S3Config{
		Endpoint:        s.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "testsecret",
		Region:          "us-east-1",
		ImageBucket:     configs.DefaultImageBucket,
		AudioBucket:     configs.DefaultAudioBucket,
	}
}

// Object 返回已写入的对象内容与类型.
func (s *Server) Object(bucket, key string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[bucket+"/"+key]

	return data, s.types[bucket+"/"+key], ok
}

// Put 预置一个对象.
func (s *Server) Put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[bucket+"/"+key] = data
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")

	if key == "" {
		// 桶级请求一律视为桶已存在
		w.WriteHeader(http.StatusOK)
		return
	}

	id := bucket + "/" + key

	switch r.Method {
	case http.MethodHead:
		s.mu.Lock()
		data, ok := s.objects[id]
		s.mu.Unlock()

		if !ok && !s.ExistsAll.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)

	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		s.objects[id] = data
		s.types[id] = r.Header.Get("Content-Type")
		s.mu.Unlock()

		s.Puts.Add(1)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)

	case http.MethodDelete:
		s.mu.Lock()
		_, ok := s.objects[id]
		delete(s.objects, id)
		s.mu.Unlock()

		if !ok {
			noSuchKey(w, bucket, key)
			return
		}

		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func noSuchKey(w http.ResponseWriter, bucket, key string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>%s</Key><BucketName>%s</BucketName></Error>`, key, bucket)
}
