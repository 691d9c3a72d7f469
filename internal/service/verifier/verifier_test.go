package verifier

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/profile"
)

func newVerifier(t *testing.T) *Verifier {
	t.Helper()
	r, err := profile.Default()
	if err != nil {
		t.Fatalf("profile.Default: %v", err)
	}
	return New(r.Target(), zap.NewNop())
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestPureUnitIsVerified(t *testing.T) {
	v := newVerifier(t)
	summary := domain.StructuralSummary{
		Functions:     []domain.FunctionDescriptor{{Name: "f", IsRecursive: true, ConditionalCount: 1, NestingDepth: 1}},
		FunctionCount: 1,
	}

	st := v.Verify("fun f(n) {\n    return if n <= 1 { n } else { f(n-1) + f(n-2) }\n}", summary)
	if !st.Verified || st.ProofScore != 100 {
		t.Fatalf("expected verified, got %+v", st)
	}
	for _, g := range []string{GuaranteeMemorySafety, GuaranteeNoUB, GuaranteePure} {
		if !contains(st.SafetyGuarantees, g) {
			t.Fatalf("missing guarantee %q in %v", g, st.SafetyGuarantees)
		}
	}
	if contains(st.SafetyGuarantees, GuaranteeDivision) {
		t.Fatalf("division guarantee without division")
	}
	if len(st.PotentialIssues) != 0 {
		t.Fatalf("unexpected issues %v", st.PotentialIssues)
	}
	if st.ProofDetails == "" {
		t.Fatalf("proof details missing")
	}
}

func TestImpureUnitReportsIssues(t *testing.T) {
	v := newVerifier(t)
	summary := domain.StructuralSummary{
		Functions: []domain.FunctionDescriptor{
			{Name: "log", HasSideEffects: true},
			{Name: "tangled", ConditionalCount: 8, NestingDepth: 4},
		},
		FunctionCount:      2,
		UnmappedConstructs: 2,
	}

	st := v.Verify("fun log() {\n", summary)
	if st.Verified || st.ProofScore != 50 {
		t.Fatalf("expected unverified at 50, got %+v", st)
	}
	joined := strings.Join(st.PotentialIssues, "\n")
	for _, want := range []string{"function log has side effects", "function tangled: cognitive complexity 33", "2 unmapped construct(s)", "does not balance"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing issue %q in:\n%s", want, joined)
		}
	}
	if contains(st.SafetyGuarantees, GuaranteeMemorySafety) {
		t.Fatalf("unverified text must not claim memory safety")
	}
}

func TestDivisionGuarantee(t *testing.T) {
	v := newVerifier(t)
	guarded := domain.StructuralSummary{
		Functions:     []domain.FunctionDescriptor{{Name: "div", HasDivision: true, GuardsDivision: true}},
		FunctionCount: 1,
	}
	if st := v.Verify("", guarded); !contains(st.SafetyGuarantees, GuaranteeDivision) {
		t.Fatalf("guarded division not recognised: %v", st.SafetyGuarantees)
	}

	unguarded := guarded
	unguarded.Functions = append([]domain.FunctionDescriptor{{Name: "raw", HasDivision: true}}, guarded.Functions...)
	if st := v.Verify("", unguarded); contains(st.SafetyGuarantees, GuaranteeDivision) {
		t.Fatalf("one unguarded division must drop the guarantee")
	}
}

func TestUnverifiedUnitClaimsNoDivisionSafety(t *testing.T) {
	v := newVerifier(t)
	summary := domain.StructuralSummary{
		Functions: []domain.FunctionDescriptor{
			{Name: "ratio", HasDivision: true, GuardsDivision: true, HasSideEffects: true},
		},
		FunctionCount: 1,
	}

	st := v.Verify("", summary)
	if st.Verified {
		t.Fatalf("impure unit should not verify: %+v", st)
	}
	if len(st.SafetyGuarantees) != 0 {
		t.Fatalf("unverified unit claimed %v", st.SafetyGuarantees)
	}
}

func TestEmptyUnit(t *testing.T) {
	st := newVerifier(t).Verify("", domain.StructuralSummary{})
	if !st.Verified || contains(st.SafetyGuarantees, GuaranteePure) {
		t.Fatalf("unexpected status for empty unit %+v", st)
	}
}
