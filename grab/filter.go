package grab

// filterState holds the four independent visibility toggles. It is owned by
// the dispatch goroutine; callers change it only through enqueued refilter
// events. The producer-side shadow copy in Grabber exists purely to decide
// rebuild-vs-in-place and to answer reads.
type filterState struct {
	questions   bool
	important   bool
	status      bool
	subscribers bool
}

func defaultFilterState() filterState {
	return filterState{questions: true, important: true, status: true, subscribers: true}
}

func (f filterState) allows(k ItemKind) bool {
	switch k {
	case KindQuestion:
		return f.questions
	case KindImportantQuestion:
		return f.important
	case KindStatus:
		return f.status
	case KindSubscriber:
		return f.subscribers
	default:
		return false
	}
}

func (f *filterState) set(k ItemKind, show bool) {
	switch k {
	case KindQuestion:
		f.questions = show
	case KindImportantQuestion:
		f.important = show
	case KindStatus:
		f.status = show
	case KindSubscriber:
		f.subscribers = show
	}
}
