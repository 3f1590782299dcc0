package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TestPage serves a minimal browser client for exercising the relay by hand:
// join a channel as a user, send messages, and watch the member list update.
func (g *Gateway) TestPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(testPageHTML))
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>disclone relay test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        #members { color: #555; margin: 10px 0; }
        input[type="text"] { padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #5865f2;
            color: white;
            border: none;
            cursor: pointer;
        }
        .system { color: gray; font-style: italic; }
        .chat { color: #222; }
    </style>
</head>
<body>
    <h1>disclone relay test</h1>

    <div>
        <input type="text" id="user" placeholder="user id" value="alice">
        <input type="text" id="channel" placeholder="channel id" value="general">
        <button onclick="join()">Join</button>
    </div>

    <div id="members">members: (none)</div>
    <div id="messages"></div>

    <div>
        <input type="text" id="text" placeholder="Type a message...">
        <button onclick="sendMessage()">Send</button>
    </div>

    <script>
        let ws = null;
        let ackId = 0;
        const messagesDiv = document.getElementById('messages');

        function addLine(text, cls) {
            const el = document.createElement('div');
            el.className = cls;
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function connect(onOpen) {
            ws = new WebSocket('ws://' + location.host + '/ws');
            ws.onopen = onOpen;
            ws.onclose = function() { addLine('connection closed', 'system'); ws = null; };
            ws.onmessage = function(ev) {
                const frame = JSON.parse(ev.data);
                if (frame.event === 'message') {
                    const m = frame.data;
                    addLine(m.user + ': ' + m.text, m.user === 'system' ? 'system' : 'chat');
                } else if (frame.event === 'roomData') {
                    document.getElementById('members').textContent =
                        'members: ' + (frame.data.users.join(', ') || '(none)');
                } else if (frame.event === 'ack') {
                    addLine('delivered (ack ' + frame.data.ackId + ')', 'system');
                }
            };
        }

        function join() {
            const payload = JSON.stringify({
                event: 'join',
                data: {
                    userId: document.getElementById('user').value,
                    channelId: document.getElementById('channel').value
                }
            });
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(payload);
            } else {
                connect(function() { ws.send(payload); });
            }
        }

        function sendMessage() {
            const input = document.getElementById('text');
            if (!input.value || !ws || ws.readyState !== WebSocket.OPEN) return;
            ws.send(JSON.stringify({
                event: 'sendMessage',
                data: {
                    message: input.value,
                    userId: document.getElementById('user').value,
                    channelId: document.getElementById('channel').value,
                    ackId: ++ackId
                }
            }));
            input.value = '';
        }

        document.getElementById('text').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') sendMessage();
        });
    </script>
</body>
</html>`
