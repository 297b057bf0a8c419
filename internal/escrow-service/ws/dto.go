package ws

// ClientMsg é uma mensagem recebida do cliente WebSocket.
// Type: subscribe | unsubscribe | ping
// MatchID: obrigatório para subscribe/unsubscribe.
type ClientMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
}

// OddsUpdate é a atualização de odds retransmitida aos clientes inscritos.
type OddsUpdate struct {
	MatchID string      `json:"matchId"`
	Payload interface{} `json:"payload"`
}
