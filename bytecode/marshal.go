package bytecode

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/fxamacker/cbor/v2"

	"github.com/risor-io/regasm/constpool"
	"github.com/risor-io/regasm/handler"
	"github.com/risor-io/regasm/register"
	"github.com/risor-io/regasm/srcpos"
)

// Marshal converts a Program into a JSON representation. Programs of nested
// function templates are included.
func Marshal(p *Program) ([]byte, error) {
	state, err := stateFromProgram(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(state)
}

// Unmarshal converts a JSON representation into a Program.
func Unmarshal(data []byte) (*Program, error) {
	var state programState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return programFromState(&state)
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalCBOR converts a Program into a deterministic CBOR representation.
func MarshalCBOR(p *Program) ([]byte, error) {
	state, err := stateFromProgram(p)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(state)
}

// UnmarshalCBOR converts a CBOR representation into a Program.
func UnmarshalCBOR(data []byte) (*Program, error) {
	var state programState
	if err := cbor.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return programFromState(&state)
}

// Serialization types

type constantDef struct {
	Type     string       `json:"type" cbor:"1,keyasint"`
	Bool     bool         `json:"bool,omitempty" cbor:"2,keyasint,omitempty"`
	Int      int64        `json:"int,omitempty" cbor:"3,keyasint,omitempty"`
	Float    float64      `json:"float,omitempty" cbor:"4,keyasint,omitempty"`
	String   string       `json:"string,omitempty" cbor:"5,keyasint,omitempty"`
	Function *functionDef `json:"function,omitempty" cbor:"6,keyasint,omitempty"`
}

type functionDef struct {
	ID           string   `json:"id" cbor:"1,keyasint"`
	Name         string   `json:"name,omitempty" cbor:"2,keyasint,omitempty"`
	Parameters   []string `json:"parameters,omitempty" cbor:"3,keyasint,omitempty"`
	ProgramIndex int      `json:"program_index" cbor:"4,keyasint"` // Index into programs array
}

type handlerDef struct {
	TryStart   int    `json:"try_start" cbor:"1,keyasint"`
	TryEnd     int    `json:"try_end" cbor:"2,keyasint"`
	Handler    int    `json:"handler" cbor:"3,keyasint"`
	Context    int32  `json:"context" cbor:"4,keyasint"`
	Prediction string `json:"prediction" cbor:"5,keyasint"`
}

type programDef struct {
	ID             string         `json:"id" cbor:"1,keyasint"`
	Name           string         `json:"name,omitempty" cbor:"2,keyasint,omitempty"`
	Code           []byte         `json:"code" cbor:"3,keyasint"`
	Constants      []constantDef  `json:"constants,omitempty" cbor:"4,keyasint,omitempty"`
	Handlers       []handlerDef   `json:"handlers,omitempty" cbor:"5,keyasint,omitempty"`
	Positions      []srcpos.Entry `json:"positions,omitempty" cbor:"6,keyasint,omitempty"`
	ParameterCount int            `json:"parameter_count" cbor:"7,keyasint"`
	LocalCount     int            `json:"local_count" cbor:"8,keyasint"`
	FrameSize      int            `json:"frame_size" cbor:"9,keyasint"`
}

type programState struct {
	Programs []*programDef `json:"programs" cbor:"1,keyasint"`
}

var predictions = map[string]handler.CatchPrediction{}

func init() {
	for p := handler.Uncaught; p <= handler.AsyncAwait; p++ {
		predictions[p.String()] = p
	}
}

func stateFromProgram(p *Program) (*programState, error) {
	all := p.Flatten()
	indexMap := make(map[*Program]int, len(all))
	for i, q := range all {
		indexMap[q] = i
	}
	state := &programState{Programs: make([]*programDef, len(all))}
	for i, q := range all {
		constants := make([]constantDef, q.ConstantCount())
		for j := 0; j < q.ConstantCount(); j++ {
			def, err := marshalConstant(q.ConstantAt(j), indexMap)
			if err != nil {
				return nil, fmt.Errorf("program %q constant %d: %w", q.Name(), j, err)
			}
			constants[j] = def
		}
		handlers := make([]handlerDef, q.HandlerCount())
		for j := 0; j < q.HandlerCount(); j++ {
			h := q.HandlerAt(j)
			handlers[j] = handlerDef{
				TryStart:   h.TryStart,
				TryEnd:     h.TryEnd,
				Handler:    h.Handler,
				Context:    int32(h.Context),
				Prediction: h.Prediction.String(),
			}
		}
		state.Programs[i] = &programDef{
			ID:             q.ID(),
			Name:           q.Name(),
			Code:           q.Bytes(),
			Constants:      constants,
			Handlers:       handlers,
			Positions:      slices.Clone(q.positions),
			ParameterCount: q.ParameterCount(),
			LocalCount:     q.LocalCount(),
			FrameSize:      q.FrameSize(),
		}
	}
	return state, nil
}

func marshalConstant(c any, indexMap map[*Program]int) (constantDef, error) {
	switch v := c.(type) {
	case nil:
		return constantDef{Type: "nil"}, nil
	case constpool.HoleValue:
		return constantDef{Type: "hole"}, nil
	case bool:
		return constantDef{Type: "bool", Bool: v}, nil
	case int:
		return constantDef{Type: "int", Int: int64(v)}, nil
	case int32:
		return constantDef{Type: "int", Int: int64(v)}, nil
	case int64:
		return constantDef{Type: "int", Int: v}, nil
	case float32:
		return marshalFloat(float64(v)), nil
	case float64:
		return marshalFloat(v), nil
	case string:
		return constantDef{Type: "string", String: v}, nil
	case *Function:
		index := -1
		if v.Program() != nil {
			if i, ok := indexMap[v.Program()]; ok {
				index = i
			}
		}
		params := make([]string, v.ParameterCount())
		for i := range params {
			params[i] = v.Parameter(i)
		}
		return constantDef{Type: "function", Function: &functionDef{
			ID:           v.ID(),
			Name:         v.Name(),
			Parameters:   params,
			ProgramIndex: index,
		}}, nil
	default:
		return constantDef{}, fmt.Errorf("unknown constant type: %T", c)
	}
}

// marshalFloat keeps non-finite values and negative zero out of the
// number field, which cannot represent them.
func marshalFloat(v float64) constantDef {
	if math.IsNaN(v) || math.IsInf(v, 0) || (v == 0 && math.Signbit(v)) {
		return constantDef{Type: "float", String: strconv.FormatFloat(v, 'g', -1, 64)}
	}
	return constantDef{Type: "float", Float: v}
}

func programFromState(state *programState) (*Program, error) {
	if len(state.Programs) == 0 {
		return nil, fmt.Errorf("no programs in serialized state")
	}
	programs := make([]*Program, len(state.Programs))
	building := make([]bool, len(state.Programs))
	var build func(i int) (*Program, error)
	build = func(i int) (*Program, error) {
		if i < 0 || i >= len(programs) {
			return nil, fmt.Errorf("program index %d out of range", i)
		}
		if programs[i] != nil {
			return programs[i], nil
		}
		if building[i] {
			return nil, fmt.Errorf("program %d references itself", i)
		}
		building[i] = true
		def := state.Programs[i]
		constants := make([]any, len(def.Constants))
		for j, c := range def.Constants {
			v, err := unmarshalConstant(c, build)
			if err != nil {
				return nil, err
			}
			constants[j] = v
		}
		handlers := make([]handler.Entry, len(def.Handlers))
		for j, h := range def.Handlers {
			prediction, ok := predictions[h.Prediction]
			if !ok {
				return nil, fmt.Errorf("unknown catch prediction: %s", h.Prediction)
			}
			handlers[j] = handler.Entry{
				TryStart:   h.TryStart,
				TryEnd:     h.TryEnd,
				Handler:    h.Handler,
				Context:    register.Register(h.Context),
				Prediction: prediction,
			}
		}
		programs[i] = NewProgram(ProgramParams{
			ID:             def.ID,
			Name:           def.Name,
			Code:           def.Code,
			Constants:      constants,
			Handlers:       handlers,
			Positions:      def.Positions,
			ParameterCount: def.ParameterCount,
			LocalCount:     def.LocalCount,
			FrameSize:      def.FrameSize,
		})
		return programs[i], nil
	}
	return build(0)
}

func unmarshalConstant(def constantDef, build func(int) (*Program, error)) (any, error) {
	switch def.Type {
	case "nil":
		return nil, nil
	case "hole":
		return constpool.Hole, nil
	case "bool":
		return def.Bool, nil
	case "int":
		// Integers come back as int64 regardless of their original width.
		return def.Int, nil
	case "float":
		if def.String != "" {
			return strconv.ParseFloat(def.String, 64)
		}
		return def.Float, nil
	case "string":
		return def.String, nil
	case "function":
		if def.Function == nil {
			return nil, fmt.Errorf("function constant without definition")
		}
		var program *Program
		if def.Function.ProgramIndex >= 0 {
			p, err := build(def.Function.ProgramIndex)
			if err != nil {
				return nil, err
			}
			program = p
		}
		return NewFunction(FunctionParams{
			ID:         def.Function.ID,
			Name:       def.Function.Name,
			Parameters: def.Function.Parameters,
			Program:    program,
		}), nil
	default:
		return nil, fmt.Errorf("unknown constant type: %s", def.Type)
	}
}
