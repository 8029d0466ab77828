package domain

// Envelope est la forme unique renvoyée à l'UI, quel que soit le chemin (succès ou échec).
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

func OK[T any](message string, data T) Envelope[T] {
	return Envelope[T]{Success: true, Message: message, Data: data}
}

func Fail[T any](message string) Envelope[T] {
	return Envelope[T]{Success: false, Message: message}
}

// FromError transforme une erreur en enveloppe d'échec (message métier en priorité).
func FromError[T any](err error, fallback string) Envelope[T] {
	return Fail[T](UserMessage(err, fallback))
}

// Then enchaîne une transformation sur la donnée d'une enveloppe réussie.
func Then[T, U any](env Envelope[T], fn func(T) U) Envelope[U] {
	if !env.Success {
		return Fail[U](env.Message)
	}
	return OK(env.Message, fn(env.Data))
}
