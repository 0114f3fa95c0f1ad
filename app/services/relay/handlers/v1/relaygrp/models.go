package relaygrp

type submitted struct {
	Message         string `json:"message"`
	TransactionHash string `json:"transactionHash"`
}

type health struct {
	Status string `json:"status"`
	Nodes  int    `json:"nodes"`
}
