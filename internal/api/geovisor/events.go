package geovisor

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geovisor/internal/humastar"
	"github.com/joeblew999/geovisor/internal/logger"
	"github.com/joeblew999/geovisor/internal/service"
)

// Events sends the layer status to a freshly opened page and then streams
// status changes until the client goes away.
func (h *Handler) Events(ctx context.Context, input *humastar.QueryInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	session := h.sessions.Get(signals.String(SigSession))

	return h.Stream(func(sse humastar.SSE) {
		// Subscribe before the first send so a load finishing in between is not lost.
		ch := h.bus.Subscribe()
		defer h.bus.Unsubscribe(ch)

		h.sendStatus(sse, session)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if ev.Resource != "layer" {
					continue
				}
				h.sendStatus(sse, session)
				sse.DispatchCustomEvent("layer-changed", map[string]any{
					"action": ev.Action,
					"source": ev.ID,
				})
			}
		}
	}), nil
}

func (h *Handler) sendStatus(sse humastar.SSE, session *service.Session) {
	status := h.data.Status()
	switch status {
	case service.LoadPending:
		sse.Signals(map[string]any{SigLayerStatus: string(status), SigSession: session.ID})

	case service.LoadFailed:
		msg := h.data.Err().Error()
		html, err := h.Renderer.Render("load-error", map[string]string{"Message": msg})
		if err != nil {
			logger.L().Error("template_render_failed", "template", "load-error", "err", err)
		} else {
			sse.Patch(html, "#notice")
		}
		sse.Signals(map[string]any{
			SigLayerStatus: string(status),
			SigLoadError:   msg,
			SigSession:     session.ID,
		})

	case service.LoadDone:
		frame := session.Render()
		sse.Patch(h.aquiferOptions(h.data.Layer(), frame.Selected), "#acuifero-select")
		out := frameSignals(frame)
		out[SigLayerStatus] = string(status)
		out[SigSession] = session.ID
		sse.Signals(out)
	}
}
