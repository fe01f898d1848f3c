package domain

// Status は生成リクエストのライフサイクルを表す状態です。
type Status int

const (
	StatusIdle Status = iota
	StatusGenerating
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusGenerating:
		return "generating"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ユーザーに表示する固定メッセージ
const (
	MsgNoImageGenerated = "No image was generated. Please try again."
	MsgGenericFailure   = "Something went wrong while generating your headshot."
)
