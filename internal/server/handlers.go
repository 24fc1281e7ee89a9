// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in browser client page.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler returns the upgrade endpoint bound to hub. It validates
// that the request uses the GET method, upgrades the HTTP connection to
// WebSocket, and registers a new Client with the hub, which launches the
// read/write pumps.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(conn, hub, r.RemoteAddr)
		select {
		case hub.register <- client:
		case <-hub.ctx.Done():
			_ = conn.Close()
		}
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the relay is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Salon relay is running!")
}

// ChatPageHandler serves the built-in browser client: a join screen, the room
// selector, and the chat screen wired to the /ws endpoint with the salon
// event protocol.
func ChatPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Salon</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .screen { display: none; }
        .screen.active { display: block; }
        .rooms { margin: 10px 0; }
        .rooms .room {
            padding: 5px 15px;
            margin-right: 5px;
            background-color: #eee;
            border: 1px solid #ccc;
            cursor: pointer;
        }
        .rooms .room.active { background-color: #007cba; color: white; }
        .messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        .message { margin: 5px 0; }
        .message .name { font-weight: bold; }
        .my-message { color: blue; }
        .update { color: gray; font-style: italic; margin: 5px 0; }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
    </style>
</head>
<body>
    <div class="app">
        <div class="screen join-screen active">
            <h1>Salon</h1>
            <input type="text" id="username" placeholder="Your name">
            <button id="join-user">Join</button>
        </div>
        <div class="screen chat-screen">
            <div class="rooms">
                <button class="room active">room 1</button>
                <button class="room">room 2</button>
                <button class="room">room 3</button>
                <button class="room">room 4</button>
            </div>
            <div class="messages"></div>
            <input type="text" id="message-input" placeholder="Type a message...">
            <button id="send-message">Send</button>
            <button id="exit-chat">Exit</button>
        </div>
    </div>

    <script>
        (function() {
            const app = document.querySelector(".app");
            const ws = new WebSocket("ws://" + location.host + "/ws");
            let username;

            function emit(payload) {
                ws.send(JSON.stringify(payload));
            }

            app.querySelector("#join-user").addEventListener("click", () => {
                username = app.querySelector("#username").value;
                if (username.length == 0) return;
                emit({ event: "changeRoom", room: "room 1", username: username });
                app.querySelector(".join-screen").classList.remove("active");
                app.querySelector(".chat-screen").classList.add("active");
            });

            app.querySelector("#send-message").addEventListener("click", () => {
                let message = app.querySelector("#message-input").value;
                if (message.length == 0) return;
                renderMessage("me", { username: "You", message: message });
                emit({ event: "chat", username: username, message: message });
                app.querySelector("#message-input").value = "";
            });

            app.querySelector("#exit-chat").addEventListener("click", () => {
                emit({ event: "exitUser", username: username });
                window.location.reload();
            });

            app.querySelectorAll(".rooms .room").forEach((el, index) => el.addEventListener("click", () => {
                emit({ event: "exitUser", username: username });
                emit({ event: "changeRoom", room: "room " + (index + 1), username: username });
                app.querySelectorAll(".rooms .room").forEach(btn => btn.classList.remove("active"));
                el.classList.add("active");
                app.querySelector(".messages").innerHTML = "";
            }));

            ws.onmessage = function(raw) {
                raw.data.split("\n").forEach(line => {
                    if (line.length == 0) return;
                    const frame = JSON.parse(line);
                    if (frame.event == "chat") {
                        renderMessage("other", frame);
                    } else if (frame.event == "update") {
                        renderMessage("update", frame.message);
                    }
                });
            };

            function renderMessage(type, message) {
                const container = app.querySelector(".messages");
                const el = document.createElement("div");
                if (type == "update") {
                    el.setAttribute("class", "update");
                    el.innerText = message;
                } else {
                    el.setAttribute("class", type == "me" ? "message my-message" : "message");
                    const name = document.createElement("div");
                    name.setAttribute("class", "name");
                    name.innerText = message.username;
                    const text = document.createElement("div");
                    text.setAttribute("class", "text");
                    text.innerText = message.message;
                    el.appendChild(name);
                    el.appendChild(text);
                }
                container.appendChild(el);
                container.scrollTop = container.scrollHeight;
            }
        })();
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}
