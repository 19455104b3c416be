package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Callback data is "action|key=value|key=value" and must fit Telegram's
// 64 byte limit.
const maxCallbackData = 64

const (
	cbMenu        = "menu"
	cbBack        = "nav_back"
	cbEvents      = "events"
	cbEvent       = "event"
	cbEventJoin   = "ev_join"
	cbEventLeave  = "ev_leave"
	cbEventPaid   = "ev_paid"
	cbTournaments = "tournaments"
	cbTournament  = "tour"
	cbTeamCreate  = "tm_new"
	cbTeam        = "team"
	cbTeamJoin    = "tm_join"
	cbTeamLibero  = "tm_libero"
	cbTeamAccept  = "tm_ok"
	cbTeamRefuse  = "tm_no"
	cbTeamLeave   = "tm_leave"
	cbTeamPaid    = "tm_paid"
	cbProfile     = "profile"
	cbGender      = "gender"

	cbAdmPlayers       = "a_players"
	cbAdmPlayer        = "a_player"
	cbAdmLevel         = "a_level"
	cbAdmPayments      = "a_pay"
	cbAdmEventPayOK    = "a_evpay_ok"
	cbAdmEventPayNo    = "a_evpay_no"
	cbAdmTeamPayOK     = "a_tmpay_ok"
	cbAdmTeamPayNo     = "a_tmpay_no"
	cbAdmEventDel      = "a_ev_del"
	cbAdmTournamentDel = "a_tour_del"
	cbAdmTeamDel       = "a_tm_del"
)

type callbackPayload struct {
	Action string
	Params map[string]string
}

func parseCallback(data string) (*callbackPayload, error) {
	if strings.TrimSpace(data) == "" {
		return nil, errors.New("empty callback")
	}
	parts := strings.Split(data, "|")
	payload := &callbackPayload{
		Action: parts[0],
		Params: map[string]string{},
	}
	if payload.Action == "" {
		return nil, errors.New("callback without action")
	}
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		payload.Params[kv[0]] = kv[1]
	}
	return payload, nil
}

// callbackData builds the payload from alternating keys and values.
func callbackData(action string, kv ...any) string {
	var b strings.Builder
	b.WriteString(action)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, "|%v=%v", kv[i], kv[i+1])
	}
	data := b.String()
	if len(data) > maxCallbackData {
		return data[:maxCallbackData]
	}
	return data
}

func (p *callbackPayload) int64(key string) int64 {
	return parseInt64(p.Params[key])
}

func (p *callbackPayload) flag(key string) bool {
	return p.Params[key] == "1"
}

func parseInt64(value string) int64 {
	if value == "" {
		return 0
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func parseIntParam(params map[string]string, key string, def int) int {
	if params == nil {
		return def
	}
	val, ok := params[key]
	if !ok || val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func compareParamMaps(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func boolParam(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
