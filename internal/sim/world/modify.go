package world

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"humanoidcraft.ai/internal/protocol"
	"humanoidcraft.ai/internal/sim/appearance"
	"humanoidcraft.ai/internal/sim/palette"
	"humanoidcraft.ai/internal/sim/visual"
)

// opError rejects one op; ops before it in the same message stay applied.
type opError struct {
	code string
	msg  string
}

func (e *opError) Error() string { return e.code + ": " + e.msg }

func reject(code, format string, args ...any) *opError {
	return &opError{code: code, msg: fmt.Sprintf(format, args...)}
}

func (w *World) applyCommand(nowTick uint64, cmd Command) {
	ack := protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          cmd.Modify.ReqID,
		ServerTick:      nowTick,
	}
	defer func() {
		if cmd.Out == nil {
			return
		}
		if b, err := json.Marshal(ack); err == nil {
			trySend(cmd.Out, b)
		}
	}()

	id := cmd.EntityID
	if id == "" {
		id = cmd.Modify.EntityID
	}
	e, ok := w.entities[id]
	if !ok {
		ack.Code, ack.Message = protocol.ErrUnknownEntity, "unknown entity"
		return
	}
	if !w.allowModify(nowTick, e) {
		ack.Code, ack.Message = protocol.ErrRateLimit, "too many modify requests"
		return
	}

	for _, op := range cmd.Modify.Ops {
		if err := w.applyOp(e.Appearance, op); err != nil {
			ack.Code, ack.Message = err.code, err.msg
			w.log.Debug("modify rejected",
				zap.String("entity", e.ID),
				zap.String("op", op.Op),
				zap.String("code", err.code),
				zap.String("reason", err.msg),
			)
			break
		}
		ack.Applied++
	}
	ack.Accepted = ack.Code == ""
	if ack.Applied > 0 {
		e.dirty = true
	}
}

func (w *World) allowModify(nowTick uint64, e *Entity) bool {
	if w.cfg.ModifyMax <= 0 || w.cfg.ModifyWindowTicks <= 0 {
		return true
	}
	if nowTick-e.windowStart >= uint64(w.cfg.ModifyWindowTicks) || e.windowCount == 0 {
		e.windowStart = nowTick
		e.windowCount = 0
	}
	if e.windowCount >= w.cfg.ModifyMax {
		return false
	}
	e.windowCount++
	return true
}

func (w *World) applyOp(a *appearance.Appearance, op protocol.ModifyOp) *opError {
	switch op.Op {
	case protocol.OpSetSpecies:
		if _, ok := w.cats.IndexSpecies(op.Species); !ok {
			return reject(protocol.ErrUnknownID, "unknown species %q", op.Species)
		}
		w.ed.SetSpecies(a, op.Species)

	case protocol.OpSetSex:
		sex := visual.Sex(op.Sex)
		if !sex.Valid() {
			return reject(protocol.ErrBadRequest, "invalid sex %q", op.Sex)
		}
		w.ed.SetSex(a, sex)

	case protocol.OpSetGender:
		g := visual.Gender(op.Gender)
		if !g.Valid() {
			return reject(protocol.ErrBadRequest, "invalid gender %q", op.Gender)
		}
		a.Gender = g

	case protocol.OpSetAge:
		if op.Age < 0 {
			return reject(protocol.ErrBadRequest, "negative age")
		}
		a.Age = op.Age

	case protocol.OpSetSkinColor:
		c, err := parseColor(op.Color)
		if err != nil {
			return err
		}
		w.ed.SetSkinColor(a, c, op.Verify)

	case protocol.OpSetEyeColor:
		c, err := parseColor(op.Color)
		if err != nil {
			return err
		}
		w.ed.SetEyeColor(a, c)

	case protocol.OpSetBaseLayer:
		layer, err := parseLayer(op.Layer)
		if err != nil {
			return err
		}
		if op.ID == "" && op.Color == "" {
			return reject(protocol.ErrBadRequest, "SET_BASE_LAYER needs id or color")
		}
		if op.ID != "" {
			if _, ok := w.cats.SpriteLayer(op.ID); !ok {
				return reject(protocol.ErrUnknownID, "unknown sprite layer %q", op.ID)
			}
		}
		var col *palette.Color
		if op.Color != "" {
			c, err := parseColor(op.Color)
			if err != nil {
				return err
			}
			col = &c
		}
		if op.ID != "" {
			w.ed.SetBaseLayerID(a, layer, op.ID)
		}
		if col != nil {
			w.ed.SetBaseLayerColor(a, layer, col)
		}

	case protocol.OpClearBaseLayer:
		layer, err := parseLayer(op.Layer)
		if err != nil {
			return err
		}
		w.ed.ClearBaseLayer(a, layer)

	case protocol.OpAddMarking:
		if _, ok := w.cats.TryGetMarking(op.ID); !ok {
			return reject(protocol.ErrUnknownID, "unknown marking %q", op.ID)
		}
		switch {
		case len(op.Colors) > 0:
			colors, err := parseColors(op.Colors)
			if err != nil {
				return err
			}
			w.ed.AddMarkingColors(a, op.ID, colors, op.Forced)
		case op.Color != "":
			c, err := parseColor(op.Color)
			if err != nil {
				return err
			}
			w.ed.AddMarking(a, op.ID, &c, op.Forced)
		default:
			w.ed.AddMarking(a, op.ID, nil, op.Forced)
		}

	case protocol.OpRemoveMarking:
		if _, ok := w.cats.TryGetMarking(op.ID); !ok {
			return reject(protocol.ErrUnknownID, "unknown marking %q", op.ID)
		}
		w.ed.RemoveMarking(a, op.ID)

	case protocol.OpRemoveMarkingAt:
		c, err := parseCategory(op.Category)
		if err != nil {
			return err
		}
		w.ed.RemoveMarkingAt(a, c, op.Index)

	case protocol.OpSetMarkingID:
		c, err := parseCategory(op.Category)
		if err != nil {
			return err
		}
		if _, ok := w.cats.MarkingsByCategory(c)[op.ID]; !ok {
			return reject(protocol.ErrUnknownID, "unknown %s marking %q", c, op.ID)
		}
		w.ed.SetMarkingID(a, c, op.Index, op.ID)

	case protocol.OpSetMarkingColor:
		c, err := parseCategory(op.Category)
		if err != nil {
			return err
		}
		colors, cerr := parseColors(op.Colors)
		if cerr != nil {
			return cerr
		}
		w.ed.SetMarkingColor(a, c, op.Index, colors)

	case protocol.OpSetLayerVisibility:
		layer, err := parseLayer(op.Layer)
		if err != nil {
			return err
		}
		a.SetLayerVisibility(layer, op.Visible, op.Permanent)

	case protocol.OpSever:
		layer, err := parseLayer(op.Layer)
		if err != nil {
			return err
		}
		w.ed.SeverBodyPart(a, layer)

	default:
		return reject(protocol.ErrUnknownOp, "unknown op %q", op.Op)
	}
	return nil
}

func parseColor(s string) (palette.Color, *opError) {
	c, err := palette.ParseHex(s)
	if err != nil {
		return palette.Color{}, reject(protocol.ErrInvalidColor, "%v", err)
	}
	return c, nil
}

func parseColors(in []string) ([]palette.Color, *opError) {
	out := make([]palette.Color, len(in))
	for i, s := range in {
		c, err := parseColor(s)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func parseLayer(s string) (visual.Layer, *opError) {
	l := visual.Layer(s)
	if !l.Valid() {
		return "", reject(protocol.ErrBadRequest, "unknown layer %q", s)
	}
	return l, nil
}

func parseCategory(s string) (visual.Category, *opError) {
	c := visual.Category(s)
	if !c.Valid() {
		return "", reject(protocol.ErrBadRequest, "unknown category %q", s)
	}
	return c, nil
}
