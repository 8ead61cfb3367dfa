package log

import "log/slog"

func BlockName[T ~string](name T) slog.Attr {
	return slog.String("block_name", string(name))
}

func BlockType[T ~string](typ T) slog.Attr {
	return slog.String("block_type", string(typ))
}

func ProviderID[T ~string](id T) slog.Attr {
	return slog.String("provider_id", string(id))
}

func ModelID(id string) slog.Attr {
	return slog.String("model_id", id)
}

func RunID[T ~string](id T) slog.Attr {
	return slog.String("run_id", string(id))
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
