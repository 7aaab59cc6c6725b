package server

// chatPage is the browser client. It validates the display name locally,
// registers over /ws, and de-duplicates incoming messages by id.
const chatPage = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>livechat</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; display: flex; gap: 20px; }
        #main { flex: 1; }
        #messages {
            border: 1px solid #ccc;
            height: 400px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        #users { width: 200px; border: 1px solid #ccc; padding: 10px; }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #7c3aed; color: white; border: none; cursor: pointer; }
        button:disabled { background-color: #aaa; }
        .system { text-align: center; color: #666; font-style: italic; margin: 6px 0; }
        .line { margin: 6px 0; }
        .avatar { display: inline-block; width: 28px; height: 28px; border-radius: 14px;
                  color: white; text-align: center; line-height: 28px; font-size: 11px; margin-right: 6px; }
        .own { text-align: right; }
        .error { color: #e11d48; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <div id="main">
        <h1>livechat</h1>
        <div id="login">
            <input type="text" id="nameInput" placeholder="Choose a display name" maxlength="20">
            <button id="joinButton" onclick="join()">Join</button>
            <p id="nameError" class="error"></p>
        </div>
        <div id="status" class="status disconnected">Disconnected</div>
        <div id="messages"></div>
        <div>
            <input type="text" id="messageInput" placeholder="Type a message..." disabled>
            <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
            <button id="leaveButton" onclick="leave()" disabled>Leave</button>
        </div>
    </div>
    <div id="users"><strong>Online (<span id="userCount">0</span>)</strong><ul id="userList"></ul></div>

    <script>
        const palette = ['#ec4899', '#8b5cf6', '#3b82f6', '#10b981', '#f59e0b'];
        let ws = null;
        let username = '';
        const seen = new Set();

        function generateId(prefix) {
            return prefix + '-' + Date.now() + '-' + Math.random().toString(36).substr(2, 9);
        }

        function avatarColor(name) {
            let sum = 0;
            for (const ch of name) { sum += ch.codePointAt(0); }
            return palette[sum % palette.length];
        }

        function initials(name) {
            return name.split(' ').filter(Boolean).map(n => n[0]).join('').toUpperCase().substring(0, 2);
        }

        function render(message) {
            if (seen.has(message.id)) { return; }
            seen.add(message.id);

            const el = document.createElement('div');
            if (message.sender === 'System') {
                el.className = 'system';
                el.textContent = message.text;
            } else {
                const own = message.sender === username;
                el.className = own ? 'line own' : 'line';
                const avatar = document.createElement('span');
                avatar.className = 'avatar';
                avatar.style.backgroundColor = own ? '#7c3aed' : avatarColor(message.sender || 'Anonymous');
                avatar.textContent = initials(message.sender || 'Anonymous');
                const text = document.createElement('span');
                const when = new Date(message.timestamp);
                text.textContent = (own ? 'You' : message.sender) + ' · ' +
                    (isNaN(when) ? '' : when.toLocaleTimeString()) + ': ' + message.text;
                el.appendChild(avatar);
                el.appendChild(text);
            }
            const box = document.getElementById('messages');
            box.appendChild(el);
            box.scrollTop = box.scrollHeight;
        }

        function renderUsers(users) {
            const list = document.getElementById('userList');
            list.innerHTML = '';
            users.forEach(function(name) {
                const li = document.createElement('li');
                li.textContent = name === username ? name + ' (you)' : name;
                list.appendChild(li);
            });
            document.getElementById('userCount').textContent = users.length;
        }

        function setConnected(connected) {
            const status = document.getElementById('status');
            status.textContent = connected ? 'Connected as ' + username : 'Disconnected';
            status.className = connected ? 'status connected' : 'status disconnected';
            document.getElementById('messageInput').disabled = !connected;
            document.getElementById('sendButton').disabled = !connected;
            document.getElementById('leaveButton').disabled = !connected;
            document.getElementById('login').style.display = connected ? 'none' : 'block';
        }

        function join() {
            const name = document.getElementById('nameInput').value.trim();
            const error = document.getElementById('nameError');
            if (!name) { error.textContent = 'Please enter a name'; return; }
            if (name.length < 2) { error.textContent = 'The name must be at least 2 characters'; return; }
            if (name.length > 20) { error.textContent = 'The name must be at most 20 characters'; return; }
            error.textContent = '';
            username = name;

            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = function() {
                setConnected(true);
                ws.send(JSON.stringify({event: 'register_user', data: username}));
            };
            ws.onmessage = function(event) {
                const frame = JSON.parse(event.data);
                if (frame.event === 'message') { render(frame.data); }
                if (frame.event === 'user_list') { renderUsers(frame.data); }
            };
            ws.onclose = function() {
                setConnected(false);
                renderUsers([]);
                ws = null;
            };
        }

        function leave() {
            if (ws) { ws.close(); }
        }

        function sendMessage() {
            const input = document.getElementById('messageInput');
            const text = input.value.trim();
            if (!text || !ws || ws.readyState !== WebSocket.OPEN) { return; }
            ws.send(JSON.stringify({event: 'message', data: {
                id: generateId('msg'),
                text: text,
                sender: username,
                timestamp: new Date().toISOString()
            }}));
            input.value = '';
        }

        document.getElementById('messageInput').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') { sendMessage(); }
        });
        document.getElementById('nameInput').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') { join(); }
        });
    </script>
</body>
</html>`
