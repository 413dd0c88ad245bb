package cache

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// memoryHook answers GET and SET from a map so the client never dials.
type memoryHook struct {
	mu   sync.Mutex
	data map[string][]byte
	args map[string][]interface{}
}

func newMemoryHook() *memoryHook {
	return &memoryHook{data: make(map[string][]byte), args: make(map[string][]interface{})}
}

func (h *memoryHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("dial disabled in tests")
	}
}

func (h *memoryHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		args := cmd.Args()
		switch cmd.Name() {
		case "set":
			key := args[1].(string)
			h.data[key] = append([]byte(nil), args[2].([]byte)...)
			h.args[key] = args
			return nil
		case "get":
			v, ok := h.data[args[1].(string)]
			if !ok {
				cmd.SetErr(redis.Nil)
				return redis.Nil
			}
			cmd.(*redis.StringCmd).SetVal(string(v))
			return nil
		}
		err := errors.New("unsupported command " + cmd.Name())
		cmd.SetErr(err)
		return err
	}
}

func (h *memoryHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisMissAndTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	hook := newMemoryHook()
	client.AddHook(hook)
	r := NewRedisWithClient(client, time.Hour)
	defer r.Close()
	ctx := context.Background()

	if _, err := r.Get(ctx, "qrimg:missing"); !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}

	if err := r.Set(ctx, "qrimg:a", []byte("png-bytes")); err != nil {
		t.Fatal(err)
	}
	got, err := r.Get(ctx, "qrimg:a")
	if err != nil || string(got) != "png-bytes" {
		t.Fatalf("got %q, %v", got, err)
	}

	args := hook.args["qrimg:a"]
	if len(args) != 5 || args[3] != "ex" || args[4] != int64(3600) {
		t.Fatalf("set args = %v, want ex 3600", args)
	}
}

func TestRedisErrorIsNotMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	client.AddHook(newMemoryHook())
	r := NewRedisWithClient(client, time.Hour)
	defer r.Close()

	// An unknown command in the hook stands in for a server error.
	err := client.Do(context.Background(), "ping").Err()
	if err == nil || errors.Is(err, redis.Nil) {
		t.Fatalf("err = %v", err)
	}
	if err := r.HealthCheck(context.Background()); err == nil || errors.Is(err, ErrMiss) {
		t.Fatalf("health check err = %v", err)
	}
}

func TestRedisServer(t *testing.T) {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("REDIS_HOST not set")
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, RedisOptions{Addr: net.JoinHostPort(host, port), Password: os.Getenv("REDIS_PASSWORD"), DB: 15, TTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	key := Key("weddingcard-test-" + time.Now().Format(time.RFC3339Nano))
	defer r.client.Del(ctx, key)

	if _, err := r.Get(ctx, key); !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
	if err := r.Set(ctx, key, []byte{0x89, 'P', 'N', 'G'}); err != nil {
		t.Fatal(err)
	}
	got, err := r.Get(ctx, key)
	if err != nil || string(got) != "\x89PNG" {
		t.Fatalf("got %q, %v", got, err)
	}
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %s, %v", ttl, err)
	}
}
