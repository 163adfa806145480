package envelope

import (
	"github.com/gogo/protobuf/proto"
)

// Offer is the protobuf message defined in envelope.proto.
type Offer struct {
	Version     uint32   `protobuf:"varint,1,opt,name=version,proto3" json:"version,omitempty"`
	Network     string   `protobuf:"bytes,2,opt,name=network,proto3" json:"network,omitempty"`
	Descriptors []string `protobuf:"bytes,3,rep,name=descriptors,proto3" json:"descriptors,omitempty"`
	Commitment  []byte   `protobuf:"bytes,4,opt,name=commitment,proto3" json:"commitment,omitempty"`
	Psbt        []byte   `protobuf:"bytes,5,opt,name=psbt,proto3" json:"psbt,omitempty"`
	Fundings    []string `protobuf:"bytes,6,rep,name=fundings,proto3" json:"fundings,omitempty"`
}

func (m *Offer) Reset()         { *m = Offer{} }
func (m *Offer) String() string { return proto.CompactTextString(m) }
func (*Offer) ProtoMessage()    {}

func init() {
	proto.RegisterType((*Offer)(nil), "envelope.Offer")
}
