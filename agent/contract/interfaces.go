package contract

import "context"

// Translator is the language collaborator behind the translation gateway.
type Translator interface {
	Detect(ctx context.Context, text string) (Language, error)
	ToEnglish(ctx context.Context, text string, from Language) (string, error)
	FromEnglish(ctx context.Context, text string, to Language) (string, error)
}

type Dispatcher interface {
	Run(ctx context.Context, req DispatchRequest) (DispatchResult, error)
}

// TranscriptRecorder appends one user message and the bot reply to a user's transcript.
type TranscriptRecorder interface {
	RecordExchange(ctx context.Context, userID, message, reply string) error
}
