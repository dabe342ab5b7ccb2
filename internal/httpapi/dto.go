package httpapi

import "github.com/evalnet/machined/pkg/value"

type newMachineResp struct {
	ID string `json:"id"`
}

type queryReq struct {
	Expression value.Value `json:"expression"`
}

type queryResp struct {
	Expression value.Value `json:"expression"`
}

type sendReq struct {
	Expressions []value.Value `json:"expressions"`
}

type sendResp struct {
	Results []value.Value `json:"results"`
}

type errorResp struct {
	Message string `json:"message"`
}
