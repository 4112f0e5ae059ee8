package view

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"pong-lite/apps/peer/internal/match"
	"pong-lite/pong"
)

// FrameToProto converts a render frame into the struct sent to renderers.
func FrameToProto(f *match.Frame) (*structpb.Struct, error) {
	if f == nil {
		return nil, fmt.Errorf("nil frame")
	}
	return structpb.NewStruct(map[string]any{
		"seq":        f.Seq,
		"at_ms":      f.AtMs,
		"mode":       f.Mode.String(),
		"local":      f.Local.String(),
		"authority":  f.Authority.String(),
		"holding":    f.Holding,
		"spectating": f.Spectating(),
		"occupied":   perSlot(f.Occupied.First, f.Occupied.Second),
		"score":      perSlot(f.Score.First, f.Score.Second),
		"paddle_y":   perSlot(f.PaddleY.First, f.PaddleY.Second),
		"ball": map[string]any{
			"x":       f.BallX,
			"y":       f.BallY,
			"visible": f.BallVisible,
		},
	})
}

// EncodeFrame marshals a frame into a binary websocket message.
func EncodeFrame(f *match.Frame) ([]byte, error) {
	st, err := FrameToProto(f)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

// DecodeControl reads a renderer input message: {"up": bool, "down": bool}.
func DecodeControl(raw []byte) (pong.Control, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(raw, &st); err != nil {
		return pong.Control{}, fmt.Errorf("decode control: %w", err)
	}
	fields := st.GetFields()
	return pong.Control{
		Up:   fields["up"].GetBoolValue(),
		Down: fields["down"].GetBoolValue(),
	}, nil
}

// EncodeControl is the renderer side of DecodeControl.
func EncodeControl(c pong.Control) ([]byte, error) {
	st, err := structpb.NewStruct(map[string]any{"up": c.Up, "down": c.Down})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

func perSlot[T any](first, second T) map[string]any {
	return map[string]any{"first": first, "second": second}
}
