package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Soak tool for the realtime plumbing: workers insert messages on a task
// while a LISTEN connection counts the notifications the backend triggers
// emit, so dropped or malformed payloads show up as a count mismatch.

type stats struct {
	sent     uint64
	ok       uint64
	errCount uint64
	notified uint64
}

func main() {
	senderID := flag.String("sender", "", "sender user id (uuid)")
	taskID := flag.String("task", "", "task id (uuid)")
	workers := flag.Int("workers", 2, "number of concurrent workers")
	count := flag.Int("count", 10, "total messages (ignored if -forever)")
	forever := flag.Bool("forever", false, "run until interrupted")
	delay := flag.Duration("delay", 100*time.Millisecond, "delay between inserts per worker (e.g. 10ms)")
	verbose := flag.Bool("verbose", false, "log every insert")
	settle := flag.Duration("settle", 2*time.Second, "time to wait for trailing notifications")
	flag.Parse()

	if *senderID == "" || *taskID == "" {
		fmt.Println("usage: go run ./scripts/feed_watch.go --task <uuid> --sender <uuid> [--workers 2] [--count 10|--forever] [--delay 100ms] [--settle 2s]")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		cancel()
	}()

	pool, err := pgxpool.New(ctx, buildDSN())
	if err != nil {
		fmt.Printf("db connect failed: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var st stats

	watcher, err := startNotifyWatcher(ctx, pool, &st)
	if err != nil {
		fmt.Printf("notify watcher failed: %v\n", err)
		os.Exit(1)
	}

	run := func(id int) {
		for {
			if !*forever {
				n := atomic.AddUint64(&st.sent, 1)
				if n > uint64(*count) {
					return
				}
			} else {
				atomic.AddUint64(&st.sent, 1)
			}

			_, err := pool.Exec(ctx,
				`INSERT INTO messages (id, task_id, sender_id, content) VALUES ($1, $2, $3, $4)`,
				uuid.NewString(), *taskID, *senderID, fmt.Sprintf("soak message from worker %d", id),
			)
			if err != nil {
				atomic.AddUint64(&st.errCount, 1)
				fmt.Printf("[W%d] error: %v\n", id, err)
			} else {
				atomic.AddUint64(&st.ok, 1)
				if *verbose {
					fmt.Printf("[W%d] ok\n", id)
				}
			}

			if *delay > 0 {
				select {
				case <-time.After(*delay):
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			run(id + 1)
		}(i)
	}
	wg.Wait()

	select {
	case <-time.After(*settle):
	case <-ctx.Done():
	}
	watcher.Stop()

	fmt.Printf("summary sent=%d ok=%d errors=%d notifications=%d\n",
		atomic.LoadUint64(&st.sent),
		atomic.LoadUint64(&st.ok),
		atomic.LoadUint64(&st.errCount),
		atomic.LoadUint64(&st.notified),
	)
	if ok, notified := atomic.LoadUint64(&st.ok), atomic.LoadUint64(&st.notified); ok != notified {
		fmt.Printf("MISMATCH: %d inserts but %d notifications\n", ok, notified)
		os.Exit(1)
	}
}

type notifyWatcher struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startNotifyWatcher(ctx context.Context, pool *pgxpool.Pool, st *stats) (*notifyWatcher, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN messages_changes"); err != nil {
		conn.Release()
		return nil, err
	}

	wctx, cancel := context.WithCancel(ctx)
	w := &notifyWatcher{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(w.done)
		defer conn.Release()
		for {
			n, err := conn.Conn().WaitForNotification(wctx)
			if err != nil {
				return
			}
			atomic.AddUint64(&st.notified, 1)
			if len(n.Payload) == 0 {
				fmt.Println("notify-watch: empty payload")
			}
		}
	}()
	return w, nil
}

func (w *notifyWatcher) Stop() {
	w.cancel()
	<-w.done
}

func buildDSN() string {
	db := getEnv("POSTGRES_DB", "microtask")
	user := getEnv("POSTGRES_USER", "microtask")
	pass := getEnv("POSTGRES_PASSWORD", "microtask")
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, db)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
