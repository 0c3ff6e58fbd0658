package api

const indexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  <title>HOLDER Price Monitor</title>
  <style>
    :root { --bg:#f8fafc; --card:#fff; --muted:#6b7280; --chip:#e5e7eb; }
    body{margin:0;background:var(--bg);font:14px/1.4 ui-sans-serif,system-ui,-apple-system,Segoe UI,Roboto,Ubuntu; color:#111827;}
    .wrap{max-width:980px;margin:24px auto;padding:0 16px;}
    .hdr{display:flex;align-items:flex-end;justify-content:space-between;margin-bottom:12px;}
    .state{font-size:12px;padding:2px 8px;border-radius:999px;background:#d1fae5;color:#065f46;}
    table{width:100%;border-collapse:collapse;background:var(--card);border-radius:16px;overflow:hidden;box-shadow:0 10px 30px rgba(0,0,0,.06);}
    thead{background:#f3f4f6;} th,td{padding:12px 14px;text-align:left;} tbody tr{border-top:1px solid #f3f4f6;}
    .chip{display:inline-block;font-size:12px;padding:2px 8px;background:var(--chip);border-radius:999px;color:#374151;}
    .pct{padding:2px 8px;border-radius:8px;font-size:12px;}
    .pct.ok{background:#dcfce7;color:#166534;} .pct.bad{background:#fee2e2;color:#991b1b;} .pct.dim{background:#f3f4f6;color:#6b7280;}
    .sub{color:var(--muted);font-size:12px;margin:0;}
    .arb{margin-top:12px;padding:12px 14px;background:var(--card);border-radius:16px;box-shadow:0 10px 30px rgba(0,0,0,.06);}
  </style>
</head>
<body>
<div class="wrap">
  <div class="hdr">
    <div>
      <h1 style="margin:0;font-size:22px;font-weight:600">HOLDER Price Monitor</h1>
      <p class="sub">STON.fi pools vs WEEX</p>
    </div>
    <div id="state" class="state">live</div>
  </div>
  <table>
    <thead>
      <tr>
        <th>Source</th><th>Price (USD)</th><th>24h Change</th>
        <th>24h High</th><th>24h Low</th><th>24h Volume</th>
        <th style="text-align:right">Updated</th>
      </tr>
    </thead>
    <tbody id="rows"></tbody>
  </table>
  <div class="arb" id="arb">No arbitrage opportunity above threshold.</div>
  <p class="sub" style="margin-top:8px">Spreads exclude trading fees and slippage. Missing upstream fields render as &mdash;.</p>
</div>
<script>
  var NAMES = {dex_pool_a:'STON.fi HOLDER/TON', dex_pool_b:'STON.fi HOLDER/USDT', cex:'WEEX HOLDER/USDT'};
  function usd(x){ return (x==null||isNaN(x)) ? '—' : ('$'+Number(x).toLocaleString(undefined,{maximumFractionDigits:8})); }
  function pct(x){ return (x==null||isNaN(x)) ? '—' : (Number(x).toFixed(2)+'%'); }
  function rowHTML(src, price, st){
    var ch = st ? st.change : null;
    var cls = (ch==null) ? 'dim' : (ch >= 0 ? 'ok' : 'bad');
    return '<tr>'
      + '<td><span class="chip">' + (NAMES[src]||src) + '</span></td>'
      + '<td><strong>' + usd(price && price.price_usd) + '</strong></td>'
      + '<td><span class="pct ' + cls + '">' + pct(ch) + '</span></td>'
      + '<td>' + usd(st && st.high) + '</td>'
      + '<td>' + usd(st && st.low) + '</td>'
      + '<td>' + usd(st && st.volume) + '</td>'
      + '<td style="text-align:right;color:#6B7280;font-size:12px">' + (price ? new Date(price.timestamp).toLocaleTimeString() : '—') + '</td>'
      + '</tr>';
  }
  async function getJSON(path){
    var res = await fetch(path, {cache:'no-store'});
    if(!res.ok) throw new Error('status '+res.status);
    var env = await res.json();
    if(!env.ok) throw new Error(env.error||'unavailable');
    return env.data;
  }
  async function tick(){
    try{
      var prices = await getJSON('/api/prices');
      var html = '';
      for (var src of ['dex_pool_a','dex_pool_b','cex']) {
        var st = null;
        try { st = await getJSON('/api/stats?source='+src); } catch(e) {}
        html += rowHTML(src, prices[src], st);
      }
      document.getElementById('rows').innerHTML = html;

      var arb = await getJSON('/api/arbitrage');
      var el = document.getElementById('arb');
      if (arb && arb.opportunity) {
        var o = arb.opportunity;
        el.textContent = 'Arbitrage: buy on ' + (NAMES[o.buy_on]||o.buy_on) + ' at ' + usd(o.buy_price)
          + ', sell on ' + (NAMES[o.sell_on]||o.sell_on) + ' at ' + usd(o.sell_price)
          + ' (' + o.profit_percent.toFixed(2) + '%, fees excluded)';
      } else {
        el.textContent = 'No arbitrage opportunity above threshold.';
      }
      document.getElementById('state').textContent = 'live';
    }catch(e){
      document.getElementById('state').textContent = 'offline';
    }
  }
  tick(); setInterval(tick, 5000);
</script>
</body>
</html>`
