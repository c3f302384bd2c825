package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nferraro/gridswap/internal/contract"
	"github.com/nferraro/gridswap/internal/state"
)

// SignRequest carries the signed-so-far package to a counterparty.
type SignRequest struct {
	Package *contract.SignedTransition `json:"package"`
}

// SignResponse carries the counterparty's signature, or the reason it
// declined.
type SignResponse struct {
	Signature *contract.Signature `json:"signature,omitempty"`
	Rejection string              `json:"rejection,omitempty"`
}

// FinalityNotice distributes the notarized record to a participant.
type FinalityNotice struct {
	Record *contract.SignedTransition `json:"record"`
}

// Session is one bidirectional exchange with a single counterparty.
type Session interface {
	RequestSignature(ctx context.Context, pkg *contract.SignedTransition) (contract.Signature, error)
	DistributeFinality(ctx context.Context, record *contract.SignedTransition) error
}

// Network opens sessions to other participants.
type Network interface {
	Open(ctx context.Context, target state.Party) (Session, error)
}

const (
	frameSignRequest  = "sign_request"
	frameSignResponse = "sign_response"
	frameFinality     = "finality"
	frameAck          = "ack"
)

// frame is one message on an in-process session. Bodies are JSON so the
// wire forms are exercised even without a real transport.
type frame struct {
	kind  string
	body  []byte
	reply chan frame
}

// InProc is a single-process Network: every node attaches under its
// organization name and each Open starts a dedicated responder goroutine,
// one message channel per session rather than one thread per session.
type InProc struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

func NewInProc() *InProc {
	return &InProc{nodes: make(map[string]*Node)}
}

func (n *InProc) Attach(node *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nodes[node.Identity.Name()] = node
	node.Network = n
}

func (n *InProc) Open(ctx context.Context, target state.Party) (Session, error) {
	n.mu.RLock()
	peer, ok := n.nodes[target.Name]
	n.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no node attached for %q", target.Name)
	}

	s := &inprocSession{peer: peer, frames: make(chan frame)}
	go s.serve(ctx)

	return s, nil
}

type inprocSession struct {
	peer   *Node
	frames chan frame
}

func (s *inprocSession) serve(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-s.frames:
			f.reply <- s.peer.handleFrame(ctx, f)
		}
	}
}

func (s *inprocSession) exchange(ctx context.Context, kind string, msg any) (frame, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return frame{}, fmt.Errorf("encoding %s: %w", kind, err)
	}

	f := frame{kind: kind, body: body, reply: make(chan frame, 1)}

	select {
	case s.frames <- f:
	case <-ctx.Done():
		return frame{}, ctx.Err()
	}

	select {
	case resp := <-f.reply:
		return resp, nil
	case <-ctx.Done():
		return frame{}, ctx.Err()
	}
}

func (s *inprocSession) RequestSignature(ctx context.Context, pkg *contract.SignedTransition) (contract.Signature, error) {
	resp, err := s.exchange(ctx, frameSignRequest, SignRequest{Package: pkg})
	if err != nil {
		return contract.Signature{}, err
	}

	var signResp SignResponse
	if err := json.Unmarshal(resp.body, &signResp); err != nil {
		return contract.Signature{}, fmt.Errorf("decoding sign response: %w", err)
	}

	if signResp.Signature == nil {
		return contract.Signature{}, &RemoteRejectionError{
			Party:  s.peer.Identity.Name(),
			Reason: signResp.Rejection,
		}
	}

	return *signResp.Signature, nil
}

func (s *inprocSession) DistributeFinality(ctx context.Context, record *contract.SignedTransition) error {
	resp, err := s.exchange(ctx, frameFinality, FinalityNotice{Record: record})
	if err != nil {
		return err
	}

	if resp.kind != frameAck {
		return fmt.Errorf("finality not acknowledged: %s", resp.body)
	}

	return nil
}

// handleFrame is the counterparty side of a session.
func (n *Node) handleFrame(ctx context.Context, f frame) frame {
	switch f.kind {
	case frameSignRequest:
		var req SignRequest
		if err := json.Unmarshal(f.body, &req); err != nil {
			return errorFrame(frameSignResponse, SignResponse{Rejection: err.Error()})
		}

		return errorFrame(frameSignResponse, n.respondToSignRequest(req))
	case frameFinality:
		var notice FinalityNotice
		if err := json.Unmarshal(f.body, &notice); err != nil {
			return frame{kind: "error", body: []byte(err.Error())}
		}

		if err := n.recordFinality(ctx, notice); err != nil {
			return frame{kind: "error", body: []byte(err.Error())}
		}

		return frame{kind: frameAck}
	default:
		return frame{kind: "error", body: []byte(fmt.Sprintf("unknown frame %q", f.kind))}
	}
}

func errorFrame(kind string, msg any) frame {
	body, _ := json.Marshal(msg)

	return frame{kind: kind, body: body}
}

// respondToSignRequest is each counterparty's independent check: verify the
// signatures gathered so far, re-run the contract validator against the
// identical candidate transition, and sign only if it also accepts.
func (n *Node) respondToSignRequest(req SignRequest) SignResponse {
	pkg := req.Package
	if pkg == nil || pkg.Transition == nil {
		return SignResponse{Rejection: "empty sign request"}
	}

	if len(pkg.Signatures) == 0 {
		return SignResponse{Rejection: "package carries no initiator signature"}
	}

	if err := pkg.VerifySignatures(); err != nil {
		return SignResponse{Rejection: err.Error()}
	}

	if err := contract.Verify(pkg.Transition, n.now()); err != nil {
		n.logger().Info("rejecting transition", "transition", pkg.ID, "reason", err)

		return SignResponse{Rejection: err.Error()}
	}

	payload, err := pkg.Transition.SigningBytes()
	if err != nil {
		return SignResponse{Rejection: err.Error()}
	}

	return SignResponse{Signature: &contract.Signature{
		Party: n.Identity.Party(),
		Sig:   n.Identity.Sign(payload),
	}}
}

// recordFinality stores the attested record. Before attestation nothing is
// durably visible; after it the record is identical for every participant.
func (n *Node) recordFinality(ctx context.Context, notice FinalityNotice) error {
	if notice.Record == nil || len(notice.Record.Attestation) == 0 {
		return fmt.Errorf("refusing to record an unattested transition")
	}

	return n.Vault.Record(ctx, notice.Record)
}
