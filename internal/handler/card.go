package handler

import "github.com/agent-protocol/a2a-server/pkg/a2a"

func (h *Handler) handleGetCard() (any, *a2a.JSONRPCError) {
	return h.card, nil
}

// PublicCard returns the public agent card for the well-known HTTP route.
func (h *Handler) PublicCard() a2a.AgentCard { return h.card }

// ExtendedCard returns the extended card and whether it is available at
// all (supported and configured), for the extended-card HTTP route,
// which applies the same authentication gate as agent/getAuthenticatedExtendedCard.
func (h *Handler) ExtendedCard(principal string) (a2a.AgentCard, *a2a.JSONRPCError) {
	result, err := h.handleGetExtendedCard(RequestMeta{Principal: principal})
	if err != nil {
		return a2a.AgentCard{}, err
	}
	return result.(a2a.AgentCard), nil
}

func (h *Handler) handleGetExtendedCard(meta RequestMeta) (any, *a2a.JSONRPCError) {
	if !h.card.SupportsAuthenticatedExtendedCard {
		return nil, a2a.NewError(a2a.CodeCapabilityUnsupported, "extended card is not supported")
	}
	if meta.Principal == "" {
		return nil, a2a.NewError(a2a.CodeAuthRequired, nil)
	}
	if h.extendedCard != nil {
		return *h.extendedCard, nil
	}
	return h.card, nil
}
