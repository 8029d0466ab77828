package domain

type EditMode int

const (
	Viewing EditMode = iota
	Editing
)

func (m EditMode) String() string {
	if m == Editing {
		return "editing"
	}
	return "viewing"
}

// EditSession est la machine d'état d'édition d'un commentaire ou d'un post :
// viewing -> editing (Begin) -> viewing (Submit ou Cancel).
type EditSession struct {
	mode     EditMode
	targetID string
	original string
}

func (s *EditSession) Mode() EditMode   { return s.mode }
func (s *EditSession) TargetID() string { return s.targetID }
func (s *EditSession) Original() string { return s.original }

// Begin passe en édition. Une seule cible à la fois.
func (s *EditSession) Begin(targetID, current string) error {
	if s.mode == Editing {
		return ErrInvalidTransition
	}
	s.mode, s.targetID, s.original = Editing, targetID, current
	return nil
}

// Submit revient en lecture et renvoie la cible éditée.
// L'appelant persiste puis recharge la liste.
func (s *EditSession) Submit() (string, error) {
	if s.mode != Editing {
		return "", ErrInvalidTransition
	}
	id := s.targetID
	s.reset()
	return id, nil
}

// Cancel abandonne l'édition sans rien persister.
func (s *EditSession) Cancel() {
	s.reset()
}

func (s *EditSession) reset() {
	s.mode, s.targetID, s.original = Viewing, "", ""
}
