package vm

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/holiman/uint256"
	"github.com/wyf-labs/evmcore/core/types"
)

// EVMLogger is the interface an execution tracer implements to observe an
// EVM run step by step. Config.Tracer holds one; when nil (or Config.Debug
// is false) the interpreter skips all tracing overhead.
type EVMLogger interface {
	// CaptureStart is called once at the beginning of the outermost call.
	CaptureStart(from, to types.Address, create bool, input []byte, gas uint64, value *uint256.Int)
	// CaptureEnd is called once after the outermost call returns.
	CaptureEnd(output []byte, gasUsed uint64, err error)
	// CaptureState is called before executing each opcode.
	CaptureState(pc uint64, op OpCode, gas, cost uint64, stack *Stack, mem *Memory, depth int, err error)
}

// StructLog is a single entry of a StructLogger's trace.
type StructLog struct {
	Pc      uint64   `json:"pc"`
	Op      OpCode   `json:"op"`
	Gas     uint64   `json:"gas"`
	GasCost uint64   `json:"gasCost"`
	Depth   int      `json:"depth"`
	Stack   []string `json:"stack"`
	Memory  string   `json:"memory,omitempty"`
	Err     error    `json:"-"`
}

// MarshalJSON renders a StructLog the way geth's eth_getTransactionTrace
// output does: opcode names instead of raw bytes, and an error string field.
func (l *StructLog) MarshalJSON() ([]byte, error) {
	type alias struct {
		Pc      uint64   `json:"pc"`
		Op      string   `json:"op"`
		Gas     uint64   `json:"gas"`
		GasCost uint64   `json:"gasCost"`
		Depth   int      `json:"depth"`
		Stack   []string `json:"stack"`
		Memory  string   `json:"memory,omitempty"`
		Error   string   `json:"error,omitempty"`
	}
	a := alias{
		Pc: l.Pc, Op: l.Op.String(), Gas: l.Gas, GasCost: l.GasCost,
		Depth: l.Depth, Stack: l.Stack, Memory: l.Memory,
	}
	if l.Err != nil {
		a.Error = l.Err.Error()
	}
	return json.Marshal(a)
}

// StructLogger is a reference EVMLogger that records one StructLog per
// executed opcode, in the shape of geth's debug_traceTransaction struct
// logger. It is meant for tests and local debugging, not production tracing.
type StructLogger struct {
	logs   []StructLog
	output []byte
	err    error
}

// NewStructLogger returns an empty StructLogger.
func NewStructLogger() *StructLogger {
	return &StructLogger{}
}

func (l *StructLogger) CaptureStart(from, to types.Address, create bool, input []byte, gas uint64, value *uint256.Int) {
}

func (l *StructLogger) CaptureEnd(output []byte, gasUsed uint64, err error) {
	l.output = output
	l.err = err
}

func (l *StructLogger) CaptureState(pc uint64, op OpCode, gas, cost uint64, stack *Stack, mem *Memory, depth int, err error) {
	data := stack.Data()
	stackStrs := make([]string, len(data))
	for i, v := range data {
		stackStrs[i] = v.Hex()
	}
	l.logs = append(l.logs, StructLog{
		Pc: pc, Op: op, Gas: gas, GasCost: cost, Depth: depth,
		Stack: stackStrs, Memory: fmt.Sprintf("%x", mem.Data()), Err: err,
	})
}

// Logs returns the recorded trace.
func (l *StructLogger) Logs() []StructLog { return l.logs }

// Error returns the error captured at CaptureEnd, if any.
func (l *StructLogger) Error() error { return l.err }

// Output returns the return data captured at CaptureEnd.
func (l *StructLogger) Output() []byte { return l.output }

// WriteTrace writes the recorded trace to w as newline-delimited JSON, one
// StructLog per line, matching geth's --vmtrace log format.
func (l *StructLogger) WriteTrace(w io.Writer) error {
	enc := json.NewEncoder(w)
	for i := range l.logs {
		if err := enc.Encode(&l.logs[i]); err != nil {
			return err
		}
	}
	return nil
}
