// Package verification verifies that patched method bodies are consistent and
// that the output encodings recreate them.
package verification

import (
	"bytes"
	"context"
	"fmt"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retropatch/internal/codec"
	"github.com/retroenv/retropatch/internal/listing"
	"github.com/retroenv/retropatch/internal/method"
	"github.com/retroenv/retropatch/internal/stack"
	"github.com/retroenv/retropatch/internal/writer"
)

const maxReportedMismatches = 10

// VerifyOutput checks the branch targets and stack balance of every body and
// verifies that the snapshot and listing encodings decode to the same bodies.
func VerifyOutput(ctx context.Context, logger *log.Logger, bodies []*method.Body) error {
	for _, body := range bodies {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("verifying: %w", err)
		}

		if err := body.Validate(); err != nil {
			return fmt.Errorf("validating %s: %w", body.Name, err)
		}
		if _, err := stack.Analyze(body); err != nil {
			return fmt.Errorf("analyzing %s: %w", body.Name, err)
		}
	}

	snapshot, err := snapshotRoundTrip(bodies)
	if err != nil {
		return err
	}
	if err := compareBodies(logger, bodies, snapshot); err != nil {
		return fmt.Errorf("snapshot mismatch: %w", err)
	}

	decoded, err := listingRoundTrip(logger, bodies)
	if err != nil {
		return err
	}
	if err := compareBodies(logger, bodies, decoded); err != nil {
		return fmt.Errorf("listing mismatch: %w", err)
	}
	return nil
}

func snapshotRoundTrip(bodies []*method.Body) ([]*method.Body, error) {
	data, err := codec.Marshal(bodies...)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	decoded, err := codec.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return decoded, nil
}

func listingRoundTrip(logger *log.Logger, bodies []*method.Body) ([]*method.Body, error) {
	var buf bytes.Buffer
	if err := writer.New(&buf, writer.Options{}).Listing(bodies...); err != nil {
		return nil, fmt.Errorf("writing listing: %w", err)
	}
	decoded, err := listing.NewDecoder(logger).Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}
	return decoded, nil
}

func compareBodies(logger *log.Logger, expected, got []*method.Body) error {
	if len(expected) != len(got) {
		return fmt.Errorf("mismatched method count, %d != %d", len(expected), len(got))
	}

	for i, body := range expected {
		if body.Name != got[i].Name || body.Returns != got[i].Returns {
			return fmt.Errorf("method %d is %s instead of %s", i, got[i].Name, body.Name)
		}
		if err := checkInstructionsEqual(logger, body, got[i]); err != nil {
			return fmt.Errorf("method %s: %w", body.Name, err)
		}
	}
	return nil
}

func checkInstructionsEqual(logger *log.Logger, expected, got *method.Body) error {
	if expected.Len() != got.Len() {
		return fmt.Errorf("mismatched lengths, %d != %d", expected.Len(), got.Len())
	}

	var diffs uint64
	for i, ins := range expected.Instructions {
		other := got.At(i)
		if ins.OpCode == other.OpCode && ins.Offset == other.Offset && operandEqual(expected, got, i) {
			continue
		}

		diffs++
		if diffs <= maxReportedMismatches {
			logger.Error("Instruction mismatch",
				log.Int("index", i),
				log.Hex("offset", ins.Offset),
				log.Stringer("expected", ins),
				log.Stringer("got", other))
		}
	}
	if diffs == 0 {
		return nil
	}
	return fmt.Errorf("%d instruction mismatches", diffs)
}

// operandEqual compares the operands of the instructions at the index.
// Branch targets are compared by index as labels are resolved by encoding.
func operandEqual(expected, got *method.Body, index int) bool {
	ins, other := expected.At(index), got.At(index)
	if !ins.IsBranch() {
		return ins.OperandString() == other.OperandString()
	}

	target, ok := ins.Target()
	otherTarget, otherOK := other.Target()
	return ok && otherOK && expected.IndexOf(target) == got.IndexOf(otherTarget)
}
