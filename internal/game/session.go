package game

// Phase фаза раунда
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseInitialReveal      Phase = "initial_reveal"
	PhaseAwaitingFirstFlip  Phase = "awaiting_first_flip"
	PhaseAwaitingSecondFlip Phase = "awaiting_second_flip"
	PhaseResolving          Phase = "resolving"
	PhaseCompleted          Phase = "completed"
)

// Session состояние одного раунда. Значение не меняется на месте:
// каждый переход возвращает новую копию
type Session struct {
	Deck           Deck
	Flipped        []int            // позиции открытых, еще не сравненных карт (не больше 2)
	Matched        map[int]struct{} // id карт из найденных пар
	FailedAttempts int
	ElapsedSeconds int
	Phase          Phase
	InputLocked    bool
}

// EventKind тип входного события автомата
type EventKind string

const (
	EventStart         EventKind = "start"
	EventRevealEnded   EventKind = "reveal_ended"
	EventInputUnlocked EventKind = "input_unlocked"
	EventFlip          EventKind = "flip"
	EventResolve       EventKind = "resolve"
	EventTick          EventKind = "tick"
)

// Event входное событие
type Event struct {
	Kind     EventKind
	Deck     Deck // для EventStart
	Position int  // для EventFlip
	Elapsed  int  // для EventTick
}

// NoticeKind тип события для внешних слушателей
type NoticeKind string

const (
	NoticeRoundStarted   NoticeKind = "round_started"
	NoticePairMatched    NoticeKind = "pair_matched"
	NoticePairMismatched NoticeKind = "pair_mismatched"
	NoticeRoundCompleted NoticeKind = "round_completed"
)

// Notice событие для хоста: звук, навигация, ws
type Notice struct {
	Kind    NoticeKind `json:"type"`
	IDs     []int      `json:"ids,omitempty"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Transition чистая функция перехода. Невалидный ввод возвращает s без изменений
func Transition(s Session, ev Event) (Session, []Notice) {
	switch ev.Kind {
	case EventStart:
		return start(ev.Deck), []Notice{{Kind: NoticeRoundStarted}}
	case EventRevealEnded:
		if s.Phase != PhaseInitialReveal {
			return s, nil
		}
		next := s.clone()
		next.Phase = PhaseAwaitingFirstFlip
		return next, nil
	case EventInputUnlocked:
		if !s.InputLocked {
			return s, nil
		}
		next := s.clone()
		next.InputLocked = false
		return next, nil
	case EventFlip:
		return flip(s, ev.Position), nil
	case EventResolve:
		return resolve(s)
	case EventTick:
		if s.Phase == PhaseIdle || s.Phase == PhaseCompleted || ev.Elapsed <= s.ElapsedSeconds {
			return s, nil
		}
		next := s.clone()
		next.ElapsedSeconds = ev.Elapsed
		return next, nil
	}
	return s, nil
}

func start(deck Deck) Session {
	d := make(Deck, len(deck))
	copy(d, deck)
	return Session{
		Deck:        d,
		Flipped:     []int{},
		Matched:     map[int]struct{}{},
		Phase:       PhaseInitialReveal,
		InputLocked: true,
	}
}

func flip(s Session, pos int) Session {
	if !s.CanFlip(pos) {
		return s
	}

	next := s.clone()
	next.Flipped = append(next.Flipped, pos)
	if len(next.Flipped) == 2 {
		next.Phase = PhaseResolving
	} else {
		next.Phase = PhaseAwaitingSecondFlip
	}
	return next
}

func resolve(s Session) (Session, []Notice) {
	if s.Phase != PhaseResolving || len(s.Flipped) != 2 {
		return s, nil
	}

	a, b := s.Deck[s.Flipped[0]], s.Deck[s.Flipped[1]]
	next := s.clone()
	next.Flipped = []int{}

	if a.ImageKey != b.ImageKey {
		next.FailedAttempts++
		next.Phase = PhaseAwaitingFirstFlip
		return next, []Notice{{Kind: NoticePairMismatched, IDs: []int{a.ID, b.ID}}}
	}

	next.Matched[a.ID] = struct{}{}
	next.Matched[b.ID] = struct{}{}
	notices := []Notice{{Kind: NoticePairMatched, IDs: []int{a.ID, b.ID}}}

	if len(next.Matched) == len(next.Deck) {
		next.Phase = PhaseCompleted
		notices = append(notices, Notice{Kind: NoticeRoundCompleted})
		return next, notices
	}

	next.Phase = PhaseAwaitingFirstFlip
	return next, notices
}

// CanFlip принимается ли переворот карты на позиции pos
func (s Session) CanFlip(pos int) bool {
	if s.InputLocked {
		return false
	}
	if s.Phase != PhaseAwaitingFirstFlip && s.Phase != PhaseAwaitingSecondFlip {
		return false
	}
	if pos < 0 || pos >= len(s.Deck) || len(s.Flipped) >= 2 {
		return false
	}
	for _, p := range s.Flipped {
		if p == pos {
			return false
		}
	}
	_, matched := s.Matched[s.Deck[pos].ID]
	return !matched
}

// IsMatched найдена ли пара для карты с данным id
func (s Session) IsMatched(id int) bool {
	_, ok := s.Matched[id]
	return ok
}

// MatchedIDs id найденных карт в порядке колоды
func (s Session) MatchedIDs() []int {
	ids := make([]int, 0, len(s.Matched))
	for _, c := range s.Deck {
		if s.IsMatched(c.ID) {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// FaceUp видна ли карта на позиции pos игроку
func (s Session) FaceUp(pos int) bool {
	if pos < 0 || pos >= len(s.Deck) {
		return false
	}
	if s.Phase == PhaseInitialReveal || s.Phase == PhaseCompleted {
		return true
	}
	for _, p := range s.Flipped {
		if p == pos {
			return true
		}
	}
	return s.IsMatched(s.Deck[pos].ID)
}

func (s Session) clone() Session {
	next := s
	next.Flipped = append([]int{}, s.Flipped...)
	next.Matched = make(map[int]struct{}, len(s.Matched))
	for id := range s.Matched {
		next.Matched[id] = struct{}{}
	}
	return next
}
