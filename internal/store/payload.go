package store

import (
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/heronlancellot/bee2bee/internal/core"
)

// chunkPayload flattens a chunk into a Qdrant payload. The code text rides
// along so search results can be rendered without a second lookup.
func chunkPayload(c core.CodeChunk) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		"code":          str(c.Code),
		"repo":          str(c.Repo),
		"file_path":     str(c.FilePath),
		"language":      str(c.Language),
		"chunk_type":    str(string(c.Type)),
		"name":          str(c.Name),
		"signature":     str(c.Signature),
		"docstring":     str(c.Docstring),
		"start_line":    integer(c.StartLine),
		"end_line":      integer(c.EndLine),
		"start_byte":    integer(c.StartByte),
		"end_byte":      integer(c.EndByte),
		"parent_class":  str(c.ParentClass),
		"module":        str(c.Module),
		"complexity":    integer(c.Complexity),
		"lines_of_code": integer(c.LinesOfCode),
	}
	if len(c.Imports) > 0 {
		values := make([]*pb.Value, len(c.Imports))
		for i, imp := range c.Imports {
			values[i] = str(imp)
		}
		payload["imports"] = &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}
	}
	return payload
}

// chunkFromPayload is the inverse of chunkPayload, minus the point id.
func chunkFromPayload(payload map[string]*pb.Value) core.CodeChunk {
	c := core.CodeChunk{
		Code:        payload["code"].GetStringValue(),
		Repo:        payload["repo"].GetStringValue(),
		FilePath:    payload["file_path"].GetStringValue(),
		Language:    payload["language"].GetStringValue(),
		Type:        core.ChunkType(payload["chunk_type"].GetStringValue()),
		Name:        payload["name"].GetStringValue(),
		Signature:   payload["signature"].GetStringValue(),
		Docstring:   payload["docstring"].GetStringValue(),
		StartLine:   int(payload["start_line"].GetIntegerValue()),
		EndLine:     int(payload["end_line"].GetIntegerValue()),
		StartByte:   int(payload["start_byte"].GetIntegerValue()),
		EndByte:     int(payload["end_byte"].GetIntegerValue()),
		ParentClass: payload["parent_class"].GetStringValue(),
		Module:      payload["module"].GetStringValue(),
		Complexity:  int(payload["complexity"].GetIntegerValue()),
		LinesOfCode: int(payload["lines_of_code"].GetIntegerValue()),
	}
	if imports := payload["imports"].GetListValue(); imports != nil {
		for _, v := range imports.Values {
			c.Imports = append(c.Imports, v.GetStringValue())
		}
	}
	return c
}

func str(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func integer(i int) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(i)}}
}
