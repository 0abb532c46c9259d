package server

import (
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/finextract/internal/common"
)

func str(req *structpb.Struct, key string) string {
	return strings.TrimSpace(req.GetFields()[key].GetStringValue())
}

func boolOr(req *structpb.Struct, key string, def bool) bool {
	v, ok := req.GetFields()[key]
	if !ok {
		return def
	}
	if _, isBool := v.GetKind().(*structpb.Value_BoolValue); !isBool {
		return def
	}
	return v.GetBoolValue()
}

// optionalDate parses an optional YYYY-MM-DD value already checked with
// common.DateYMD.
func optionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := common.ParseYMD(s)
	if err != nil {
		return nil
	}
	return &t
}

// toStruct converts a response map, turning marshalling failures into an
// internal status.
func toStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return out, nil
}
