// Package api provides the portfolio backend client and the resource codec
// shared by the REST and WebSocket paths.
//
// REST endpoints (relative to {origin}/api):
//   - GET  /portfolio/carteira
//   - GET  /portfolio/distribuicao
//   - GET  /portfolio/posicoes
//   - GET  /portfolio/transacoes?limit=N
//   - GET  /portfolio/configuracao-diversificacao
//   - GET  /alerts/?limit=N&resolvido=false
//   - POST /alerts/{id}/resolver
//   - GET  /status
//
// WebSocket endpoint: {ws|wss}://{host}/ws
package api
