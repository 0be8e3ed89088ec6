package cgi

// MaxConcurrent caps how many CGI children run at once (spec.md §4.5's
// MAX_CONCURRENT_CGI_PROCESSES). Requests past the cap wait in Queue
// until a running job finishes.
const MaxConcurrent = 5

// Queue is a FIFO of CGI requests waiting for a concurrency slot, plus
// the set of fds currently occupying one. It holds no goroutines or
// locks: TryAdmit/Release are only ever called from the single event-loop
// goroutine.
type Queue struct {
	running map[int]*Job // ClientFd -> Job
	waiting []queuedStart
}

type queuedStart struct {
	clientFd    int
	interpreter string
	scriptPath  string
	env         []string
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{running: make(map[int]*Job)}
}

// Len reports how many jobs are currently running.
func (q *Queue) Len() int {
	return len(q.running)
}

// Waiting reports how many requests are parked behind the concurrency cap.
func (q *Queue) Waiting() int {
	return len(q.waiting)
}

// TryAdmit records an already started job as running under clientFd if
// a slot is free, and reports whether it did. If the cap is reached,
// the caller should instead call Enqueue to park the request.
func (q *Queue) TryAdmit(clientFd int, job *Job) bool {
	if len(q.running) >= MaxConcurrent {
		return false
	}
	q.running[clientFd] = job
	return true
}

// Enqueue parks a request behind the cap for later admission once a
// running slot frees up.
func (q *Queue) Enqueue(clientFd int, interpreter, scriptPath string, env []string) {
	q.waiting = append(q.waiting, queuedStart{clientFd, interpreter, scriptPath, env})
}

// Next pops the oldest parked request, or ok=false if the queue is
// empty, for the caller to Start and TryAdmit.
func (q *Queue) Next() (clientFd int, interpreter, scriptPath string, env []string, ok bool) {
	if len(q.waiting) == 0 {
		return 0, "", "", nil, false
	}
	item := q.waiting[0]
	q.waiting = q.waiting[1:]
	return item.clientFd, item.interpreter, item.scriptPath, item.env, true
}

// Release frees clientFd's running slot. It does not start a parked
// request; the caller pops one with Next.
func (q *Queue) Release(clientFd int) {
	delete(q.running, clientFd)
}
