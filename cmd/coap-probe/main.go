// Copyright 2021 The Matrix.org Foundation C.I.C.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command coap-probe sends a single CoAP request built from this
// repository's own codec to a running gateway and prints the decoded
// reply, for manual smoke testing. Flag scaffolding and usage-string
// convention are adapted from matrix-org-lb's cmd/coap client, stripped
// of its DTLS/HTTP-bridging body and rewired to internal/coapcodec.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/coapmesh/gateway/internal/coapcodec"
	"github.com/coapmesh/gateway/internal/coapmsg"
)

var (
	flagType    string
	flagPath    string
	flagPayload string
	flagTimeout time.Duration
)

func init() {
	flag.StringVar(&flagType, "type", "CON", "CoAP message type: CON, NON, ACK, or RST")
	flag.StringVar(&flagPath, "path", "", "Uri-Path segments to request, e.g. sensors/temp")
	flag.StringVar(&flagPayload, "data", "", "Request payload")
	flag.DurationVar(&flagTimeout, "timeout", 2*time.Second, "How long to wait for a reply")
}

func parseType(s string) (coapmsg.Type, error) {
	switch strings.ToUpper(s) {
	case "CON":
		return coapmsg.TypeCON, nil
	case "NON":
		return coapmsg.TypeNON, nil
	case "ACK":
		return coapmsg.TypeACK, nil
	case "RST":
		return coapmsg.TypeRST, nil
	default:
		return 0, fmt.Errorf("unknown message type %q", s)
	}
}

func buildRequest(typ coapmsg.Type, path, payload string) (coapmsg.Message, error) {
	header, err := coapmsg.NewHeader(1, typ, 0, 0, 1, uint16(time.Now().UnixNano()&0x7FFF))
	if err != nil {
		return coapmsg.Message{}, err
	}

	var options []coapmsg.Option
	if path != "" {
		number, err := coapmsg.NewOptionNumber(int(coapmsg.OptionURIPath))
		if err != nil {
			return coapmsg.Message{}, err
		}
		for _, segment := range strings.Split(path, "/") {
			if segment == "" {
				continue
			}
			options = append(options, coapmsg.Option{Number: number, Value: []byte(segment)})
		}
	}

	body := coapmsg.Body{Options: options}
	if payload != "" {
		body.Payload = []byte(payload)
	}

	return coapmsg.Message{Header: header, Body: body}, nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: coap-probe [flags] host:port\n")
		flag.PrintDefaults()
		fmt.Println("Example: coap-probe -path sensors/temp -data 21.5 127.0.0.1:5683")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	target := flag.Arg(0)

	typ, err := parseType(flagType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", err)
		os.Exit(1)
	}

	req, err := buildRequest(typ, flagPath, flagPayload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL building request: %s\n", err)
		os.Exit(1)
	}

	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL resolving %q: %s\n", target, err)
		os.Exit(1)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL dialing %q: %s\n", target, err)
		os.Exit(1)
	}
	defer conn.Close()

	if _, err := conn.Write(coapcodec.Encode(req)); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL sending request: %s\n", err)
		os.Exit(1)
	}

	if typ != coapmsg.TypeCON {
		fmt.Println("sent (no reply expected for a non-confirmable request)")
		return
	}

	conn.SetReadDeadline(time.Now().Add(flagTimeout))
	buf := make([]byte, 1500)
	n, err := conn.Read(buf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL no reply received: %s\n", err)
		os.Exit(1)
	}

	reply, err := coapcodec.Decode(buf[:n])
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL decoding reply: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("type=%d code=%d.%02d id=%d payload=%q\n",
		reply.Header.Type, reply.Header.CodePrefix, reply.Header.CodeSuffix,
		reply.Header.MessageID, string(reply.Body.Payload))
}
