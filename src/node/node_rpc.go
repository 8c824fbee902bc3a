package node

import (
	"fmt"

	"github.com/mosaicnetworks/hastings/src/correlation"
	"github.com/mosaicnetworks/hastings/src/net"
	"github.com/mosaicnetworks/hastings/src/telemetry"
	"github.com/sirupsen/logrus"
)

func (n *Node) requestPing(target string, id correlation.ID) (net.PingResponse, error) {
	args := net.PingRequest{
		FromID:        n.validator.ID(),
		From:          n.self,
		CorrelationID: id,
	}

	var out net.PingResponse

	err := n.trans.Ping(target, &args, &out)

	return out, err
}

func (n *Node) requestNeighbours(target string) (net.NeighboursResponse, error) {
	n.logger.WithFields(logrus.Fields{
		"target": target,
	}).Debug("RequestNeighbours()")

	args := net.NeighboursRequest{
		FromID: n.validator.ID(),
	}

	var out net.NeighboursResponse

	err := n.trans.Neighbours(target, &args, &out)

	return out, err
}

func (n *Node) processRPC(rpc net.RPC) {
	switch cmd := rpc.Command.(type) {
	case *net.PingRequest:
		n.processPingRequest(rpc, cmd)
	case *net.NeighboursRequest:
		n.processNeighboursRequest(rpc, cmd)
	default:
		n.logger.WithField("cmd", rpc.Command).Error("Unexpected RPC command")
		telemetry.RPCs.WithLabelValues("unknown", "error").Inc()
		rpc.Respond(nil, fmt.Errorf("unexpected command"))
	}
}

func (n *Node) processPingRequest(rpc net.RPC, cmd *net.PingRequest) {
	n.logger.WithFields(logrus.Fields{
		"from_id": cmd.FromID,
		"from":    cmd.From,
		"id":      cmd.CorrelationID,
	}).Debug("process PingRequest")

	resp := &net.PingResponse{
		FromID:        n.validator.ID(),
		CorrelationID: cmd.CorrelationID,
	}

	telemetry.RPCs.WithLabelValues("ping", "ok").Inc()

	rpc.Respond(resp, nil)
}

func (n *Node) processNeighboursRequest(rpc net.RPC, cmd *net.NeighboursRequest) {
	neighbours := n.walk.CurrentStep().ResponsivePeers()

	n.logger.WithFields(logrus.Fields{
		"from_id":    cmd.FromID,
		"neighbours": len(neighbours),
	}).Debug("process NeighboursRequest")

	resp := &net.NeighboursResponse{
		FromID: n.validator.ID(),
		Peers:  neighbours,
	}

	telemetry.RPCs.WithLabelValues("neighbours", "ok").Inc()

	rpc.Respond(resp, nil)
}
