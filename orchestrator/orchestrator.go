// Package orchestrator drives every selected file through validation, upload
// and security-scan tracking, one independent pipeline per file.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/moyoez/scandrop/scan"
	"github.com/moyoez/scandrop/store"
	"github.com/moyoez/scandrop/tool"
	"github.com/moyoez/scandrop/types"
)

const (
	DefaultFallbackDelay = 2 * time.Second

	MessageQueued       = "Queued"
	MessageWaitingSlot  = "Waiting for a free upload slot..."
	MessageUploading    = "Uploading..."
	MessageScanning     = "Upload complete, security scan in progress..."
	MessageCompleted    = "Upload completed"
	MessageValidation   = "File rejected"
	MessageUploadFailed = "Upload failed"
	MessageScanFailed   = "Security scan failed"
	MessageDegraded     = "Live updates unavailable, the scan continues on the server and the asset list will refresh shortly"
)

var (
	ErrClosed       = errors.New("orchestrator is closed")
	ErrNotRetryable = errors.New("only failed tasks can be retried")
)

// Validator accepts or rejects a file before any network call.
type Validator interface {
	Validate(file types.FileRef) error
}

// Transport uploads one file and returns its scan ticket, empty when the scan
// already finished server-side.
type Transport interface {
	Upload(ctx context.Context, file types.FileRef, onProgress func(int)) (string, error)
}

// ChannelOpener subscribes to scan status events for a ticket.
type ChannelOpener interface {
	Open(ticketID string, onEvent func(scan.Event), onDegrade func(error)) io.Closer
}

// OpenerFunc adapts a function to ChannelOpener.
type OpenerFunc func(ticketID string, onEvent func(scan.Event), onDegrade func(error)) io.Closer

func (f OpenerFunc) Open(ticketID string, onEvent func(scan.Event), onDegrade func(error)) io.Closer {
	return f(ticketID, onEvent, onDegrade)
}

// RefreshFunc is the caller-supplied asset list refresh.
type RefreshFunc func(ctx context.Context) error

// Options wires the orchestrator's collaborators.
type Options struct {
	Validator Validator
	Transport Transport
	Opener    ChannelOpener
	Refresh   RefreshFunc
	// MaxConcurrentUploads bounds simultaneous transport calls; 0 means unlimited.
	MaxConcurrentUploads int
	FallbackDelay        time.Duration
	NewID                func() string
}

// pipeline is the per-task resource record: the open channel and the pending
// fallback refresh timer.
type pipeline struct {
	channel     io.Closer
	timer       *time.Timer
	timerSeq    int
	degraded    bool
	finished    bool
	refreshDone bool
}

// Orchestrator owns the task store and every per-task resource.
type Orchestrator struct {
	opts   Options
	store  *store.Store
	ctx    context.Context
	cancel context.CancelFunc
	sem    chan struct{}

	mu          sync.Mutex
	pipelines   map[string]*pipeline
	subscribers []func(store.Change)
	closed      bool
	wg          sync.WaitGroup
}

// New creates an orchestrator. Validator, Transport and Opener are required.
func New(opts Options) (*Orchestrator, error) {
	if opts.Validator == nil || opts.Transport == nil || opts.Opener == nil {
		return nil, fmt.Errorf("validator, transport and opener must not be nil")
	}
	if opts.FallbackDelay <= 0 {
		opts.FallbackDelay = DefaultFallbackDelay
	}
	if opts.NewID == nil {
		opts.NewID = tool.GenerateRandomUUID
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		opts:      opts,
		store:     store.New(),
		ctx:       ctx,
		cancel:    cancel,
		pipelines: make(map[string]*pipeline),
	}
	if opts.MaxConcurrentUploads > 0 {
		o.sem = make(chan struct{}, opts.MaxConcurrentUploads)
	}
	o.store.OnChange(o.dispatch)
	return o, nil
}

// Subscribe registers fn to receive every store change.
func (o *Orchestrator) Subscribe(fn func(store.Change)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribers = append(o.subscribers, fn)
}

func (o *Orchestrator) dispatch(c store.Change) {
	o.mu.Lock()
	subs := append([]func(store.Change){}, o.subscribers...)
	o.mu.Unlock()
	for _, fn := range subs {
		fn(c)
	}
}

// Tasks returns a read-only snapshot of every task in insertion order.
func (o *Orchestrator) Tasks() []types.UploadTask {
	return o.store.List()
}

// Task returns one task by id.
func (o *Orchestrator) Task(id string) (types.UploadTask, bool) {
	return o.store.Get(id)
}

// AddFiles creates one pending task per file and validates it on the spot.
// Accepted files are uploaded in the background, independently of each other.
func (o *Orchestrator) AddFiles(files []types.FileRef) ([]string, error) {
	o.mu.Lock()
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	ids := make([]string, 0, len(files))
	for _, file := range files {
		id := o.opts.NewID()
		if err := o.store.Add(types.UploadTask{
			ID:      id,
			File:    file,
			Status:  types.StatusPending,
			Message: MessageQueued,
		}); err != nil {
			tool.DefaultLogger.Errorf("[Orchestrator] failed to add %s: %v", file.Name, err)
			continue
		}
		ids = append(ids, id)

		if err := o.opts.Validator.Validate(file); err != nil {
			tool.DefaultLogger.Infof("[Orchestrator] %s rejected: %v", file.Name, err)
			o.update(id, types.TaskPatch{
				Status:  types.WithStatus(types.StatusFailed),
				Message: types.WithString(MessageValidation),
				Error:   types.WithString(userMessage(err, err.Error())),
			})
			continue
		}

		message := MessageUploading
		if o.sem != nil {
			message = MessageWaitingSlot
		}
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			o.update(id, types.TaskPatch{
				Status:  types.WithStatus(types.StatusFailed),
				Message: types.WithString(MessageUploadFailed),
				Error:   types.WithString(ErrClosed.Error()),
			})
			continue
		}
		o.pipelines[id] = &pipeline{}
		o.wg.Add(1)
		o.mu.Unlock()
		o.update(id, types.TaskPatch{
			Status:   types.WithStatus(types.StatusUploading),
			Progress: types.WithInt(0),
			Message:  types.WithString(message),
		})
		go o.upload(id, file)
	}
	return ids, nil
}

// RemoveTask closes any channel or timer held by the task and deletes it.
// An upload already in flight is not cancelled; its result is discarded.
func (o *Orchestrator) RemoveTask(id string) bool {
	o.mu.Lock()
	p := o.pipelines[id]
	delete(o.pipelines, id)
	o.mu.Unlock()
	o.release(id, p)

	_, ok := o.store.Remove(id)
	if ok {
		tool.DefaultLogger.Debugf("[Orchestrator] removed task %s", id)
	}
	return ok
}

// ClearAll removes every task, closing all open channels.
func (o *Orchestrator) ClearAll() int {
	o.mu.Lock()
	pipelines := o.pipelines
	o.pipelines = make(map[string]*pipeline)
	o.mu.Unlock()
	for id, p := range pipelines {
		o.release(id, p)
	}
	return len(o.store.Clear())
}

// Retry discards a failed task and re-adds its file as a new task.
func (o *Orchestrator) Retry(id string) (string, error) {
	task, ok := o.store.Get(id)
	if !ok {
		return "", store.ErrTaskNotFound
	}
	if task.Status != types.StatusFailed {
		return "", fmt.Errorf("%w: %s is %s", ErrNotRetryable, id, task.Status)
	}
	o.RemoveTask(id)
	ids, err := o.AddFiles([]types.FileRef{task.File})
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("failed to re-add %s", task.File.Name)
	}
	return ids[0], nil
}

// Close tears everything down: channels, timers and in-flight uploads.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	pipelines := o.pipelines
	o.pipelines = make(map[string]*pipeline)
	o.mu.Unlock()

	for id, p := range pipelines {
		o.release(id, p)
	}
	o.cancel()
	o.wg.Wait()
	return nil
}

// release closes the channel and stops the timer of a pipeline that has
// already been detached from the map.
func (o *Orchestrator) release(id string, p *pipeline) {
	if p == nil {
		return
	}
	o.mu.Lock()
	ch := p.channel
	p.channel = nil
	p.finished = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	o.mu.Unlock()
	closeChannel(id, ch)
}

func closeChannel(id string, ch io.Closer) {
	if ch == nil {
		return
	}
	if err := ch.Close(); err != nil {
		tool.DefaultLogger.Debugf("[Orchestrator] closing channel of %s: %v", id, err)
	}
}

// update applies patch, logging anything other than a vanished task.
func (o *Orchestrator) update(id string, patch types.TaskPatch) bool {
	if _, err := o.store.Update(id, patch); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			tool.DefaultLogger.Debugf("[Orchestrator] discarding update for removed task %s", id)
		} else {
			tool.DefaultLogger.Warnf("[Orchestrator] update of %s rejected: %v", id, err)
		}
		return false
	}
	return true
}

func (o *Orchestrator) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *Orchestrator) exists(id string) bool {
	_, ok := o.store.Get(id)
	return ok
}

func (o *Orchestrator) acquire() bool {
	if o.sem == nil {
		return true
	}
	select {
	case o.sem <- struct{}{}:
		return true
	case <-o.ctx.Done():
		return false
	}
}

func (o *Orchestrator) releaseSlot() {
	if o.sem != nil {
		<-o.sem
	}
}

func (o *Orchestrator) upload(id string, file types.FileRef) {
	defer o.wg.Done()

	if !o.acquire() {
		return
	}
	defer o.releaseSlot()
	if !o.exists(id) {
		return
	}
	if o.sem != nil {
		o.update(id, types.TaskPatch{Message: types.WithString(MessageUploading)})
	}

	ticket, err := o.opts.Transport.Upload(o.ctx, file, func(pct int) {
		if pct < 100 {
			o.update(id, types.TaskPatch{Progress: types.WithInt(pct)})
		}
	})
	if err != nil {
		if o.isClosed() {
			tool.DefaultLogger.Debugf("[Orchestrator] upload of %s interrupted by shutdown", file.Name)
			return
		}
		tool.DefaultLogger.Warnf("[Orchestrator] upload of %s failed: %v", file.Name, err)
		o.update(id, types.TaskPatch{
			Status:  types.WithStatus(types.StatusFailed),
			Message: types.WithString(MessageUploadFailed),
			Error:   types.WithString(userMessage(err, "server error")),
		})
		return
	}

	if ticket == "" {
		if o.update(id, types.TaskPatch{
			Status:   types.WithStatus(types.StatusCompleted),
			Progress: types.WithInt(100),
			Message:  types.WithString(MessageCompleted),
		}) {
			o.refresh("upload completed without scan")
		}
		return
	}

	if !o.update(id, types.TaskPatch{
		Status:   types.WithStatus(types.StatusScanning),
		Progress: types.WithInt(100),
		Message:  types.WithString(MessageScanning),
		TicketID: types.WithString(ticket),
	}) {
		return
	}
	o.openChannel(id, ticket)
}

// openChannel subscribes to the ticket and registers the channel in the arena.
// Callbacks may run before Open returns, so registration re-checks the state.
func (o *Orchestrator) openChannel(id, ticket string) {
	o.mu.Lock()
	if p := o.pipelines[id]; p == nil || p.finished {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	ch := o.opts.Opener.Open(ticket,
		func(e scan.Event) { o.onEvent(id, e) },
		func(err error) { o.onDegrade(id, err) },
	)

	o.mu.Lock()
	p := o.pipelines[id]
	if p == nil || p.finished || p.degraded {
		o.mu.Unlock()
		closeChannel(id, ch)
		return
	}
	p.channel = ch
	o.mu.Unlock()
	tool.DefaultLogger.Debugf("[Orchestrator] tracking scan of %s (ticket %s)", id, ticket)
}

func (o *Orchestrator) onEvent(id string, e scan.Event) {
	switch e.Kind {
	case scan.EventProgress:
		o.update(id, types.TaskPatch{Message: types.WithString(e.Message)})
	case scan.EventCompleted:
		o.finish(id)
		if o.update(id, types.TaskPatch{
			Status:  types.WithStatus(types.StatusCompleted),
			Message: types.WithString(e.Message),
		}) {
			o.refresh("scan completed")
		}
	case scan.EventFailed:
		o.finish(id)
		o.update(id, types.TaskPatch{
			Status:  types.WithStatus(types.StatusFailed),
			Message: types.WithString(MessageScanFailed),
			Error:   types.WithString(e.Message),
		})
	}
}

// finish marks the pipeline terminal, cancels a pending fallback and closes the channel.
func (o *Orchestrator) finish(id string) {
	o.mu.Lock()
	p := o.pipelines[id]
	if p == nil {
		o.mu.Unlock()
		return
	}
	ch := p.channel
	p.channel = nil
	p.finished = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	o.mu.Unlock()
	closeChannel(id, ch)
}

// onDegrade keeps the task scanning, softens its message and schedules a
// single delayed refresh of the asset list.
func (o *Orchestrator) onDegrade(id string, err error) {
	o.mu.Lock()
	p := o.pipelines[id]
	if p == nil || p.finished || p.degraded || o.closed {
		o.mu.Unlock()
		return
	}
	p.degraded = true
	ch := p.channel
	p.channel = nil
	p.timerSeq++
	seq := p.timerSeq
	p.timer = time.AfterFunc(o.opts.FallbackDelay, func() { o.fallback(id, seq) })
	o.mu.Unlock()
	closeChannel(id, ch)

	tool.DefaultLogger.Infof("[Orchestrator] degraded to fallback refresh for %s: %v", id, err)
	o.update(id, types.TaskPatch{Message: types.WithString(MessageDegraded)})
}

func (o *Orchestrator) fallback(id string, seq int) {
	o.mu.Lock()
	p := o.pipelines[id]
	if p == nil || p.timer == nil || p.timerSeq != seq || p.refreshDone {
		o.mu.Unlock()
		return
	}
	p.timer = nil
	p.refreshDone = true
	o.mu.Unlock()
	o.refresh("fallback after degraded scan channel")
}

// refresh invokes the asset list collaborator in the background.
func (o *Orchestrator) refresh(reason string) {
	if o.opts.Refresh == nil {
		return
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.wg.Add(1)
	o.mu.Unlock()
	go func() {
		defer o.wg.Done()
		tool.DefaultLogger.Debugf("[Orchestrator] refreshing asset list: %s", reason)
		if err := o.opts.Refresh(o.ctx); err != nil {
			tool.DefaultLogger.Warnf("[Orchestrator] asset list refresh failed: %v", err)
		}
	}()
}

func userMessage(err error, fallback string) string {
	var m interface{ UserMessage() string }
	if errors.As(err, &m) {
		return m.UserMessage()
	}
	return fallback
}
