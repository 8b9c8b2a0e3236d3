package scheduler

import "trialgate/internal/trial/models"

type item struct {
	job   models.Job
	index int
}

// jobHeap orders jobs by FireAt, then id for a stable order.
type jobHeap []*item

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].job.FireAt.Equal(h[j].job.FireAt) {
		return h[i].job.ID < h[j].job.ID
	}
	return h[i].job.FireAt.Before(h[j].job.FireAt)
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}
