package ir

// Kind enumerates the finite subset of process constructors cspx models:
// channels, prefix, external/internal choice, interleaving, interface
// parallel synchronisation, hiding, and named process references.
// spec.md section 1 fixes this as the contract; nothing outside this
// enumeration is accepted from the front-end.
type Kind uint8

const (
	KindStop Kind = iota
	KindPrefix
	KindInputPrefix
	KindExtChoice
	KindIntChoice
	KindInterleave
	KindParallel
	KindHide
	KindRef
)

// Term is a process expression. Terms double as LTS states: the
// operational semantics in transition.Provider rewrites a term into its
// successors without ever mutating the term graph, so structurally equal
// terms are interchangeable states regardless of how they were reached.
type Term struct {
	Kind Kind
	Span Span

	// KindPrefix, KindHide
	Label Label // KindPrefix only
	Cont  *Term // KindPrefix, KindHide

	// KindInputPrefix
	Channel string
	Conts   []*Term // one continuation per value in the channel's declared range

	// KindExtChoice, KindIntChoice, KindInterleave, KindParallel
	Left  *Term
	Right *Term

	// KindParallel: channel names both sides must synchronise on.
	// KindHide: channel names hidden from the environment.
	Sync []string

	// KindRef
	Name string
}

// Stop is the deadlocked process: no outgoing transitions.
func Stop(span Span) *Term { return &Term{Kind: KindStop, Span: span} }

// Prefix builds `label -> cont`.
func Prefix(label Label, cont *Term, span Span) *Term {
	return &Term{Kind: KindPrefix, Label: label, Cont: cont, Span: span}
}

// InputPrefix builds `channel?x -> conts[x]`, one branch per declared value.
func InputPrefix(channel string, conts []*Term, span Span) *Term {
	return &Term{Kind: KindInputPrefix, Channel: channel, Conts: conts, Span: span}
}

// ExtChoice builds `left [] right`.
func ExtChoice(left, right *Term, span Span) *Term {
	return &Term{Kind: KindExtChoice, Left: left, Right: right, Span: span}
}

// IntChoice builds `left |~| right`.
func IntChoice(left, right *Term, span Span) *Term {
	return &Term{Kind: KindIntChoice, Left: left, Right: right, Span: span}
}

// Interleave builds `left ||| right`.
func Interleave(left, right *Term, span Span) *Term {
	return &Term{Kind: KindInterleave, Left: left, Right: right, Span: span}
}

// Parallel builds `left [|sync|] right`, synchronising on the named channels.
func Parallel(left, right *Term, sync []string, span Span) *Term {
	return &Term{Kind: KindParallel, Left: left, Right: right, Sync: sync, Span: span}
}

// Hide builds `cont \ sync`, hiding the named channels.
func Hide(cont *Term, sync []string, span Span) *Term {
	return &Term{Kind: KindHide, Cont: cont, Sync: sync, Span: span}
}

// Ref builds a reference to a named process declaration.
func Ref(name string, span Span) *Term {
	return &Term{Kind: KindRef, Name: name, Span: span}
}
