package kestrel

// SelectResult tags which of the two futures passed to Select completed
// first. The tag and both possible payloads live side by side; only the one
// named by IsFirst is meaningful.
type SelectResult[A, B any] struct {
	IsFirst     bool
	FirstValue  A
	SecondValue B
}

// selectFuture polls f1 then f2, in that order, on every Poll call, and
// completes with whichever finishes first. If both are ready on the same
// poll, f1 wins. Constructed via Select.
type selectFuture[A, B any] struct {
	f1 Future[A]
	f2 Future[B]
}

// Select races f1 against f2. Both are polled on every call to the returned
// future's Poll until one completes; the loser is never polled again.
// Callers that need to release in-flight I/O on the losing side cancel it
// through their own reference (e.g. AcceptFuture.Cancel), since Select
// never cancels either future.
func Select[A, B any](f1 Future[A], f2 Future[B]) Future[SelectResult[A, B]] {
	return &selectFuture[A, B]{f1: f1, f2: f2}
}

func (s *selectFuture[A, B]) Poll(cx *Context) (SelectResult[A, B], bool) {
	if a, ready := s.f1.Poll(cx); ready {
		return SelectResult[A, B]{IsFirst: true, FirstValue: a}, true
	}
	if b, ready := s.f2.Poll(cx); ready {
		return SelectResult[A, B]{IsFirst: false, SecondValue: b}, true
	}
	var zero SelectResult[A, B]
	return zero, false
}
