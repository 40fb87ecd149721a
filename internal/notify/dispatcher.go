/**
 * @description
 * This file implements the asynchronous notification dispatcher: a bounded,
 * process-scoped worker pool that delivers SMS status updates to payment
 * recipients off the critical path of the initiating request.
 *
 * Key properties:
 * - Enqueue never blocks the caller and never surfaces an error; when the
 *   queue is full or the pool is shut down the job is dropped with a warning.
 * - Workers re-read the transaction from the store at dispatch time, so the
 *   message reflects the latest persisted state rather than a stale snapshot.
 * - Delivery failures are logged and swallowed; there is no retry here.
 *
 * @dependencies
 * - context, log, sync, time: Standard Go libraries.
 * - internal/domain, internal/store: For the transaction model and lookups.
 */

package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/finsense/payment-service/internal/domain"
	"github.com/finsense/payment-service/internal/store"
)

// SMSGateway is the outbound notification channel contract.
type SMSGateway interface {
	SendSMS(ctx context.Context, phoneNumber, message string) error
}

// Job is the unit of work handed to the pool: a transaction id plus the
// status resolved when the notification was scheduled.
type Job struct {
	TransactionID string
	Status        domain.PaymentStatus
}

// Dispatcher is the process-scoped notification worker pool. It is created
// once at startup and drained at shutdown.
type Dispatcher struct {
	repo    store.Repository
	gateway SMSGateway
	jobs    chan Job
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool

	sendTimeout time.Duration
}

// NewDispatcher creates a dispatcher with the given number of workers and
// queue capacity. Start must be called before any Enqueue is serviced.
func NewDispatcher(repo store.Repository, gateway SMSGateway, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 5
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	d := &Dispatcher{
		repo:        repo,
		gateway:     gateway,
		jobs:        make(chan Job, queueSize),
		sendTimeout: 15 * time.Second,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue schedules a notification for the given transaction. It is
// fire-and-forget: the caller is never blocked and never sees an error.
func (d *Dispatcher) Enqueue(transactionID string, status domain.PaymentStatus) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		log.Printf("level=warn component=notify msg=\"dispatcher is shut down; notification dropped\" transaction_id=%s status=%s", transactionID, status)
		return
	}

	select {
	case d.jobs <- Job{TransactionID: transactionID, Status: status}:
		d.mu.Unlock()
	default:
		d.mu.Unlock()
		log.Printf("level=warn component=notify msg=\"notification queue full; notification dropped\" transaction_id=%s status=%s", transactionID, status)
	}
}

// Shutdown stops accepting new jobs and waits for in-flight ones to finish,
// or until the context expires.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("level=info component=notify msg=\"dispatcher drained\"")
	case <-ctx.Done():
		log.Println("level=warn component=notify msg=\"dispatcher shutdown timed out; abandoning outstanding notifications\"")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.deliver(job)
	}
}

// deliver re-reads the transaction and sends the rendered message. Every
// failure is swallowed here; notification problems must never reach the
// payment flow.
func (d *Dispatcher) deliver(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	tx, err := d.repo.FindTransactionByID(ctx, job.TransactionID)
	if err != nil {
		log.Printf("level=warn component=notify msg=\"could not load transaction for notification\" transaction_id=%s err=%v", job.TransactionID, err)
		return
	}

	message := BuildStatusMessage(tx, job.Status)
	if err := d.gateway.SendSMS(ctx, tx.RecipientPhoneNumber, message); err != nil {
		log.Printf("level=error component=notify msg=\"sms delivery failed\" transaction_id=%s err=%v", job.TransactionID, err)
		return
	}

	log.Printf("level=info component=notify msg=\"sms notification sent\" transaction_id=%s status=%s", job.TransactionID, job.Status)
}
