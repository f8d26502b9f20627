package work

import "container/heap"

// priorityQueue is a max-heap by Priority, FIFO within a priority.
type priorityQueue []*Item

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].Priority != pq[j].Priority {
		return pq[i].Priority > pq[j].Priority
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].heapIndex = i
	pq[j].heapIndex = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*Item)
	item.heapIndex = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.heapIndex = -1
	*pq = old[:n-1]
	return item
}

// contains reports whether item is still queued.
func (pq priorityQueue) contains(item *Item) bool {
	return item != nil && item.heapIndex >= 0 && item.heapIndex < len(pq) && pq[item.heapIndex] == item
}

// update changes the priority of a queued item.
func (pq *priorityQueue) update(item *Item, p Priority) bool {
	if !pq.contains(item) {
		return false
	}
	item.Priority = p
	heap.Fix(pq, item.heapIndex)
	return true
}

// remove takes a queued item out of the heap.
func (pq *priorityQueue) remove(item *Item) bool {
	if !pq.contains(item) {
		return false
	}
	heap.Remove(pq, item.heapIndex)
	return true
}
