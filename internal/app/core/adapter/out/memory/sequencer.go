package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

// ErrSequencerStopped 核心引擎已停止
var ErrSequencerStopped = errors.New("sequencer stopped")

// unitRequest 交易請求包裝 channel，讓呼叫端可以等待結果
type unitRequest struct {
	fn     func(t *tx) error
	result chan error
}

// SequencedStore 單一寫入者 (LMAX 風格) 的記憶體儲存層
//
// 所有寫入透過輸送帶交給單一 goroutine 依序執行，不需要帳戶鎖
//
//	Atomically(等待) -> Channel -> Run Loop -> WAL -> Map Update -> Result Channel -> Atomically(收到結果)
type SequencedStore struct {
	store *Store
	// 輸送帶 負責接收交易
	requests chan *unitRequest
	// Pool 減少 GC 壓力
	requestPool sync.Pool
	done        chan struct{}
}

// NewSequencedStore 建立 SequencedStore，需呼叫 Start 後才會處理寫入
//
// 參數:
//
//	w: Write-Ahead Log 實例 (可為 nil)
//	buffer: 輸送帶緩衝大小
//	opts: Store 選項 (WithClock)
//
// 回傳:
//
//	*SequencedStore: 實例
//	error: WAL 恢復失敗
func NewSequencedStore(w *wal.WAL, buffer int, opts ...Option) (*SequencedStore, error) {
	store, err := NewStore(w, opts...)
	if err != nil {
		return nil, err
	}
	if buffer <= 0 {
		buffer = 1000
	}
	return &SequencedStore{
		store:    store,
		requests: make(chan *unitRequest, buffer),
		requestPool: sync.Pool{
			New: func() any {
				return &unitRequest{result: make(chan error, 1)}
			},
		},
		done: make(chan struct{}),
	}, nil
}

// Start 啟動核心引擎 (非同步)，ctx 結束時處理完剩餘請求後停止
func (s *SequencedStore) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Done 引擎停止後關閉
func (s *SequencedStore) Done() <-chan struct{} {
	return s.done
}

func (s *SequencedStore) Repositories() usecase.Repositories {
	return s.store.repositories(s.submit)
}

func (s *SequencedStore) Atomically(ctx context.Context, lockIDs []uuid.UUID, fn func(ctx context.Context, repos usecase.Repositories) error) error {
	return s.submit(ctx, lockIDs, func(t *tx) error {
		return fn(ctx, t.repositories())
	})
}

// submit 放入輸送帶並等待結果，單一寫入者不需要 lockIDs
func (s *SequencedStore) submit(ctx context.Context, _ []uuid.UUID, fn func(t *tx) error) error {
	req := s.requestPool.Get().(*unitRequest)
	req.fn = fn

	select {
	case s.requests <- req:
	case <-ctx.Done():
		req.fn = nil
		s.requestPool.Put(req)
		return ctx.Err()
	case <-s.done:
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, ErrSequencerStopped)
	}

	select {
	case err := <-req.result:
		req.fn = nil
		s.requestPool.Put(req)
		return err
	case <-s.done:
		// 結果在關閉前送出時仍在 channel 內
		select {
		case err := <-req.result:
			return err
		default:
			return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, ErrSequencerStopped)
		}
	}
}

func (s *SequencedStore) loop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的交易處理完
			s.drain()
			return
		case req := <-s.requests:
			s.process(req)
		}
	}
}

func (s *SequencedStore) drain() {
	for {
		select {
		case req := <-s.requests:
			s.process(req)
		default:
			return
		}
	}
}

// process 執行單一交易單位並回傳結果
func (s *SequencedStore) process(req *unitRequest) {
	t := newTx(s.store)
	err := req.fn(t)
	if err == nil {
		err = s.store.commit(t)
	}
	req.result <- err
}

var _ usecase.Store = (*SequencedStore)(nil)
