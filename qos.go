package yarp

import (
	"fmt"

	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/msg"
)

// QosStyle carries the scheduling and packet-priority settings a
// caller can push onto an established connection. A value of -1 leaves
// the corresponding setting untouched.
type QosStyle struct {
	ThreadPriority int
	ThreadPolicy   int
	PacketTOS      int
}

// DefaultQosStyle returns a style that changes nothing.
func DefaultQosStyle() QosStyle {
	return QosStyle{ThreadPriority: -1, ThreadPolicy: -1, PacketTOS: -1}
}

func (q QosStyle) isDefault() bool {
	return q.ThreadPriority == -1 && q.ThreadPolicy == -1 && q.PacketTOS == -1
}

// SetConnectionQos pushes scheduling and packet-priority properties to
// both ends of the connection from src to dest. Each end is told about
// the unit on its far side.
func (n *Network) SetConnectionQos(src, dest string, srcStyle, destStyle QosStyle) error {
	if !srcStyle.isDefault() {
		if err := n.setPortQos(src, dest, srcStyle); err != nil {
			return err
		}
	}
	if !destStyle.isDefault() {
		if err := n.setPortQos(dest, src, destStyle); err != nil {
			return err
		}
	}
	return nil
}

func (n *Network) setPortQos(port, unit string, qos QosStyle) error {
	cmd := msg.New().AddString("prop").AddString("set").AddString(unit)
	sched := cmd.AddList()
	sched.AddString("sched")
	schedProp := sched.AddList()
	schedProp.AddString("priority").AddInt(qos.ThreadPriority)
	schedProp.AddString("policy").AddInt(qos.ThreadPolicy)
	qosGroup := cmd.AddList()
	qosGroup.AddString("qos")
	qosProp := qosGroup.AddList()
	qosProp.AddString("tos").AddInt(qos.PacketTOS)

	style := contact.Style{Admin: true, Timeout: 2.0, ExpectReply: true}
	reply, err := n.writer(contact.FromName(port), cmd, style)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnreachable, port)
	}
	if reply.Get(0).AsString() != "ok" {
		return fmt.Errorf("%w: cannot set qos properties of %s", ErrProtocolDenied, port)
	}
	return nil
}

// GetConnectionQos reads both ends' settings for the connection from
// src to dest.
func (n *Network) GetConnectionQos(src, dest string) (srcQos, destQos QosStyle, err error) {
	srcQos, err = n.getPortQos(src, dest)
	if err != nil {
		return
	}
	destQos, err = n.getPortQos(dest, src)
	return
}

func (n *Network) getPortQos(port, unit string) (QosStyle, error) {
	cmd := msg.New().AddString("prop").AddString("get").AddString(unit)
	style := contact.Style{Admin: true, Timeout: 2.0, ExpectReply: true}
	reply, err := n.writer(contact.FromName(port), cmd, style)
	if err != nil {
		return DefaultQosStyle(), fmt.Errorf("%w: %s", ErrUnreachable, port)
	}
	if reply.Size() == 0 || reply.Get(0).AsString() == "fail" {
		return DefaultQosStyle(), fmt.Errorf("%w: cannot get qos properties of %s", ErrProtocolDenied, port)
	}
	out := DefaultQosStyle()
	if sched := reply.Find("sched").AsList(); sched != nil {
		out.ThreadPriority = sched.Find("priority").AsInt()
		out.ThreadPolicy = sched.Find("policy").AsInt()
	}
	if qos := reply.Find("qos").AsList(); qos != nil {
		out.PacketTOS = qos.Find("tos").AsInt()
	}
	return out, nil
}
